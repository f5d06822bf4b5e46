package payment

import (
	"strings"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/auth"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/proration"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ApplyPaymentRequest struct {
	Amount      decimal.Decimal      `json:"amount"`
	Method      models.PaymentMethod `json:"method"`
	PaymentDate string               `json:"payment_date"` // YYYY-MM-DD
	Reference   string               `json:"reference"`
	Notes       string               `json:"notes"`
}

type PaymentResponse struct {
	ID          uint                 `json:"id"`
	InvoiceID   uint                 `json:"invoice_id"`
	Amount      string               `json:"amount"`
	Method      models.PaymentMethod `json:"method"`
	PaymentDate string               `json:"payment_date"`
	Reference   string               `json:"reference"`
	Notes       string               `json:"notes,omitempty"`
	CreatedAt   string               `json:"created_at"`
}

type ApplyPaymentResponse struct {
	Payment         PaymentResponse      `json:"payment"`
	InvoiceID       uint                 `json:"invoice_id"`
	Total           string               `json:"total"`
	PaidAmount      string               `json:"paid_amount"`
	RemainingAmount string               `json:"remaining_amount"`
	Status          models.InvoiceStatus `json:"status"`
}

func toPaymentResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount.StringFixed(proration.MoneyPlaces),
		Method:      p.Method,
		PaymentDate: p.PaymentDate.Format("2006-01-02"),
		Reference:   p.Reference,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func invoiceIDParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz fatura ID")
	}
	return uint(id), nil
}

// POST /api/invoices/:id/payment
func ApplyPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}

		var body ApplyPaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var date time.Time
		if s := strings.TrimSpace(body.PaymentDate); s != "" {
			date, err = time.Parse("2006-01-02", s)
			if err != nil {
				return apperror.Invalid("payment_date", "tarih formatı YYYY-MM-DD olmalı")
			}
		}

		userID, userName, _ := auth.CurrentUser(c)
		res, err := svc.ApplyPayment(c.UserContext(), id, ApplyInput{
			Amount:    body.Amount,
			Method:    body.Method,
			Date:      date,
			Reference: body.Reference,
			Notes:     body.Notes,
		}, Actor{UserID: userID, UserName: userName})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(ApplyPaymentResponse{
			Payment:         toPaymentResponse(res.Payment),
			InvoiceID:       res.Invoice.ID,
			Total:           res.Invoice.Total.StringFixed(proration.MoneyPlaces),
			PaidAmount:      res.Invoice.PaidAmount.StringFixed(proration.MoneyPlaces),
			RemainingAmount: res.Invoice.RemainingAmount.StringFixed(proration.MoneyPlaces),
			Status:          res.Invoice.Status,
		})
	}
}

// GET /api/invoices/:id/payments
func ListPaymentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		payments, err := svc.ListPayments(c.UserContext(), id)
		if err != nil {
			return err
		}
		resp := make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, toPaymentResponse(p))
		}
		return c.JSON(resp)
	}
}
