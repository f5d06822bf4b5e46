// Package server builds the HTTP application: middleware, routes and the
// mapping from domain errors to responses.
package server

import (
	"errors"
	"strings"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/audit"
	"invoicing-backend/internal/auth"
	"invoicing-backend/internal/config"
	"invoicing-backend/internal/dashboard"
	"invoicing-backend/internal/importer"
	"invoicing-backend/internal/invoice"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Invoices *invoice.Service
	Payments *payment.Service
}

func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // xlsx import
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger())

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(deps.DB))
	api.Post("/auth/login", auth.LoginHandler(cfg, deps.DB))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(deps.DB))

	adminOnly := auth.RequireRole(models.RoleAdmin)
	staff := auth.RequireRole(models.RoleAdmin, models.RoleAccountant)

	protected.Post("/auth/users", adminOnly, auth.CreateUserHandler(deps.DB))

	// Faturalar
	invoices := protected.Group("/invoices", staff)
	invoices.Post("/", invoice.CreateMasterInvoiceHandler(deps.Invoices))
	invoices.Post("/import-items", importer.ImportItemsHandler())
	invoices.Get("/:id", invoice.GetInvoiceHandler(deps.Invoices))
	invoices.Get("/:id/children", invoice.ListChildInvoicesHandler(deps.Invoices))
	invoices.Get("/:id/balances", invoice.ItemBalancesHandler(deps.Invoices))
	invoices.Post("/:id/preview-child-invoice", invoice.PreviewChildInvoiceHandler(deps.Invoices))
	invoices.Post("/:id/create-child-invoice", invoice.CreateChildInvoiceHandler(deps.Invoices))
	invoices.Post("/:id/void", adminOnly, invoice.VoidChildInvoiceHandler(deps.Invoices))

	// Ödemeler
	invoices.Post("/:id/payment", payment.ApplyPaymentHandler(deps.Payments))
	invoices.Get("/:id/payments", payment.ListPaymentsHandler(deps.Payments))

	// Dashboard
	dash := protected.Group("/dashboard", staff)
	dash.Get("/collections", dashboard.CollectionsHandler(deps.DB))
	dash.Get("/receivables", dashboard.ReceivablesHandler(deps.DB))

	// Audit
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(deps.DB))

	return app
}

// ErrorHandler renders fiber errors as-is and domain errors with the status
// and details from apperror.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	status := apperror.HTTPStatus(err)
	if !apperror.IsDomain(err) {
		log := logger.WithRequestID(requestIDOf(c))
		log.Error().Err(err).Str("path", c.Path()).Msg("Beklenmeyen hata")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Beklenmeyen sunucu hatası",
		})
	}

	body := fiber.Map{"error": apperror.Message(err)}
	for k, v := range apperror.Details(err) {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func requestIDOf(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// ErrorHandler has not run yet; predict its status for the log line.
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = apperror.HTTPStatus(err)
			}
		}

		log := logger.WithRequestID(requestIDOf(c))
		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		} else if status >= 400 {
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP isteği")
		return err
	}
}
