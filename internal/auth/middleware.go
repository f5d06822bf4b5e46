package auth

import (
	"slices"
	"strings"

	"invoicing-backend/internal/config"
	"invoicing-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// principalKey holds the *Principal of an authenticated request.
const principalKey = "principal"

// Principal is the caller identity taken from a verified token. Invoice and
// payment handlers stamp it onto audit rows.
type Principal struct {
	UserID uint
	Name   string
	Role   models.UserRole
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is case-insensitive; an empty token is rejected.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTMiddleware verifies the bearer token and attaches its Principal to the
// request.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header eksik")
		}
		token, ok := bearerToken(header)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization formatı 'Bearer <token>' olmalı")
		}

		claims, err := ParseToken(cfg.JWTSecret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz veya süresi dolmuş token")
		}

		c.Locals(principalKey, &Principal{UserID: claims.UserID, Name: claims.Name, Role: claims.Role})
		return c.Next()
	}
}

// PrincipalOf returns the caller set by JWTMiddleware, or nil on public routes.
func PrincipalOf(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(principalKey).(*Principal)
	return p
}

// RequireRole lets the request through only for the given roles.
func RequireRole(allowed ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalOf(c)
		if p == nil || p.Role == "" {
			return fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
		}
		if !slices.Contains(allowed, p.Role) {
			return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
		}
		return c.Next()
	}
}

// CurrentUser returns the id and display name set by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (uint, string, bool) {
	p := PrincipalOf(c)
	if p == nil || p.UserID == 0 {
		return 0, "", false
	}
	return p.UserID, p.Name, true
}
