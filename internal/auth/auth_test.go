package auth

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"invoicing-backend/internal/config"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{ID: 5, Email: "a@b.com", Name: "Ayşe", Role: models.RoleAccountant}

	tok, err := GenerateToken(testSecret, user)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, "Ayşe", claims.Name)
	assert.Equal(t, models.RoleAccountant, claims.Role)

	_, err = ParseToken("another-secret-another-secret-xx", tok)
	assert.Error(t, err)
}

func protectedApp(roles ...models.UserRole) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/x", JWTMiddleware(cfg), RequireRole(roles...), func(c *fiber.Ctx) error {
		id, name, _ := CurrentUser(c)
		return c.JSON(fiber.Map{"id": id, "name": name})
	})
	return app
}

func TestMiddlewareRejectsMissingAndMalformedHeader(t *testing.T) {
	app := protectedApp(models.RoleAdmin)

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"Bearerabc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			token, ok := bearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestMiddlewareAcceptsLowercaseSchemeAndSetsPrincipal(t *testing.T) {
	app := protectedApp(models.RoleAccountant)

	tok, err := GenerateToken(testSecret, &models.User{ID: 4, Name: "Mehmet", Role: models.RoleAccountant})
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"name":"Mehmet"}`, string(body))
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	app := protectedApp(models.RoleAdmin)

	tok, err := GenerateToken(testSecret, &models.User{ID: 1, Role: models.RoleAccountant})
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	tok, err = GenerateToken(testSecret, &models.User{ID: 2, Role: models.RoleAdmin})
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterAdminOnlyOnceThenLogin(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Post("/register", RegisterAdminHandler(db))
	app.Post("/login", LoginHandler(cfg, db))

	body := `{"name":"Admin","email":"Admin@Example.com","password":"supersecret"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest("POST", "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"admin@example.com","password":"supersecret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"admin@example.com","password":"wrong-pass"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
