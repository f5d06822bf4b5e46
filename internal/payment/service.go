// Package payment records payments against invoices and keeps each invoice's
// paid and remaining amounts.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/audit"
	"invoicing-backend/internal/database"
	"invoicing-backend/internal/events"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/proration"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Actor struct {
	UserID   uint
	UserName string
}

type ApplyInput struct {
	Amount    decimal.Decimal
	Method    models.PaymentMethod
	Date      time.Time
	Reference string
	Notes     string
}

// Result is the stored payment together with the invoice state after it.
type Result struct {
	Payment models.Payment
	Invoice models.Invoice
}

type Service struct {
	db     *gorm.DB
	outbox *events.Outbox
	now    func() time.Time
}

func NewService(db *gorm.DB, outbox *events.Outbox) *Service {
	return &Service{db: db, outbox: outbox, now: time.Now}
}

// ApplyPayment appends a payment to an invoice. The invoice row is locked for
// the balance check, so two concurrent payments cannot both pass it.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID uint, in ApplyInput, actor Actor) (*Result, error) {
	log := logger.WithComponent("payment.service")

	if !in.Amount.IsPositive() {
		return nil, &apperror.ValidationError{
			Err:   apperror.ErrInvalidAmount,
			Field: "amount",
			Msg:   "ödeme tutarı sıfırdan büyük olmalı",
		}
	}
	if !in.Amount.Equal(in.Amount.Round(proration.MoneyPlaces)) {
		return nil, &apperror.ValidationError{
			Err:   apperror.ErrInvalidAmount,
			Field: "amount",
			Msg:   "ödeme tutarı en fazla 2 ondalık basamak içerebilir",
		}
	}
	if in.Method == "" {
		in.Method = models.PaymentMethodCash
	}
	if !in.Method.Valid() {
		return nil, apperror.Invalid("method", fmt.Sprintf("geçersiz ödeme yöntemi: %s", in.Method))
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	var res Result
	err := database.InTx(ctx, s.db, "apply payment", func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return apperror.Persistence("lock invoice", err)
		}
		if inv.Status == models.InvoiceStatusVoid {
			return apperror.ErrInvoiceVoid
		}

		// Remaining is recomputed from the payment rows, not trusted from the
		// stored column.
		var existing []models.Payment
		if err := tx.Where("invoice_id = ?", inv.ID).Find(&existing).Error; err != nil {
			return apperror.Persistence("sum payments", err)
		}
		paid := decimal.Zero
		for _, ep := range existing {
			paid = paid.Add(ep.Amount)
		}
		currentRemaining := inv.Total.Sub(paid)

		if in.Amount.GreaterThan(currentRemaining) {
			maxAllowed := currentRemaining
			if maxAllowed.IsNegative() {
				maxAllowed = decimal.Zero
			}
			return &apperror.OverpaymentError{InvoiceID: inv.ID, Requested: in.Amount, MaxAllowed: maxAllowed}
		}

		before := snapshot(inv)

		p := models.Payment{
			InvoiceID:   inv.ID,
			Amount:      in.Amount,
			Method:      in.Method,
			PaymentDate: in.Date,
			Reference:   strings.TrimSpace(in.Reference),
			Notes:       in.Notes,
		}
		if actor.UserID != 0 {
			uid := actor.UserID
			p.CreatedByID = &uid
		}
		if err := tx.Create(&p).Error; err != nil {
			return apperror.Persistence("create payment", err)
		}

		remaining := currentRemaining.Sub(in.Amount)
		status := nextStatus(inv.Status, inv.Total, remaining)
		paidAmount := paid.Add(in.Amount)
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"paid_amount":      paidAmount,
			"remaining_amount": remaining,
			"status":           status,
		}).Error; err != nil {
			return apperror.Persistence("update invoice balance", err)
		}
		inv.PaidAmount = paidAmount
		inv.RemainingAmount = remaining
		inv.Status = status

		if err := audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s faturasına %s tutarında ödeme", inv.InvoiceNumber, in.Amount.StringFixed(proration.MoneyPlaces)),
			Before:      before,
			After:       snapshot(inv),
		}); err != nil {
			return apperror.Persistence("audit", err)
		}

		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:        events.EventPaymentApplied,
			AggregateID: inv.ID,
			Payload: events.PaymentAppliedPayload{
				PaymentID:       p.ID,
				InvoiceID:       inv.ID,
				Amount:          in.Amount.StringFixed(proration.MoneyPlaces),
				PaidAmount:      paidAmount.StringFixed(proration.MoneyPlaces),
				RemainingAmount: remaining.StringFixed(proration.MoneyPlaces),
				Status:          string(status),
			},
		}); err != nil {
			return apperror.Persistence("publish event", err)
		}

		res = Result{Payment: p, Invoice: inv}
		return nil
	})
	if err != nil {
		if apperror.HTTPStatus(err) < 500 {
			log.Debug().Err(err).Uint("invoice_id", invoiceID).Msg("Ödeme reddedildi")
		} else {
			log.Error().Err(err).Uint("invoice_id", invoiceID).Msg("Ödeme kaydedilemedi")
		}
		return nil, err
	}

	log.Info().
		Uint("invoice_id", invoiceID).
		Uint("payment_id", res.Payment.ID).
		Str("amount", res.Payment.Amount.StringFixed(proration.MoneyPlaces)).
		Str("remaining", res.Invoice.RemainingAmount.StringFixed(proration.MoneyPlaces)).
		Str("status", string(res.Invoice.Status)).
		Msg("Ödeme uygulandı")
	return &res, nil
}

// nextStatus: paid at zero, partially_paid strictly between zero and total,
// otherwise unchanged.
func nextStatus(current models.InvoiceStatus, total, remaining decimal.Decimal) models.InvoiceStatus {
	switch {
	case remaining.IsZero():
		return models.InvoiceStatusPaid
	case remaining.IsPositive() && remaining.LessThan(total):
		return models.InvoiceStatusPartiallyPaid
	}
	return current
}

// ListPayments returns an invoice's payments in insertion order.
func (s *Service) ListPayments(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Select("id").First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Persistence("load invoice", err)
	}

	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&payments).Error; err != nil {
		return nil, apperror.Persistence("list payments", err)
	}
	return payments, nil
}

type balanceSnapshot struct {
	Total           string `json:"total"`
	PaidAmount      string `json:"paid_amount"`
	RemainingAmount string `json:"remaining_amount"`
	Status          string `json:"status"`
}

func snapshot(inv models.Invoice) balanceSnapshot {
	return balanceSnapshot{
		Total:           inv.Total.StringFixed(proration.MoneyPlaces),
		PaidAmount:      inv.PaidAmount.StringFixed(proration.MoneyPlaces),
		RemainingAmount: inv.RemainingAmount.StringFixed(proration.MoneyPlaces),
		Status:          string(inv.Status),
	}
}
