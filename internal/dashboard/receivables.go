package dashboard

import (
	"context"
	"time"

	"invoicing-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusTotals struct {
	Count     int
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// Receivables: alt faturalar üzerinden tahsilat özeti. Void faturalar ayrı sayılır,
// toplamlara girmez.
type Receivables struct {
	ByStatus          map[models.InvoiceStatus]*StatusTotals
	Outstanding       decimal.Decimal
	Overdue           decimal.Decimal
	OverdueCount      int
	UninvoicedMasters int
}

// ReceivablesSummary aggregates child invoices by status. A child is overdue
// when its due date is before today and something is still owed.
func ReceivablesSummary(ctx context.Context, db *gorm.DB, now time.Time) (*Receivables, error) {
	var children []models.Invoice
	if err := db.WithContext(ctx).
		Select("id", "status", "due_date", "total", "paid_amount", "remaining_amount").
		Where("is_master = ?", false).
		Find(&children).Error; err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	r := &Receivables{
		ByStatus:    map[models.InvoiceStatus]*StatusTotals{},
		Outstanding: decimal.Zero,
		Overdue:     decimal.Zero,
	}
	for _, inv := range children {
		st, ok := r.ByStatus[inv.Status]
		if !ok {
			st = &StatusTotals{Total: decimal.Zero, Paid: decimal.Zero, Remaining: decimal.Zero}
			r.ByStatus[inv.Status] = st
		}
		st.Count++
		if inv.Status == models.InvoiceStatusVoid {
			continue
		}
		st.Total = st.Total.Add(inv.Total)
		st.Paid = st.Paid.Add(inv.PaidAmount)
		st.Remaining = st.Remaining.Add(inv.RemainingAmount)

		if !inv.RemainingAmount.IsPositive() {
			continue
		}
		r.Outstanding = r.Outstanding.Add(inv.RemainingAmount)
		if inv.DueDate != nil && inv.DueDate.Before(today) {
			r.Overdue = r.Overdue.Add(inv.RemainingAmount)
			r.OverdueCount++
		}
	}

	// henüz tamamı faturalanmamış master'lar
	var open int64
	if err := db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("is_master = ?", true).
		Where("EXISTS (SELECT 1 FROM invoice_items ii WHERE ii.invoice_id = invoices.id AND ii.fulfilled_quantity < ii.total_quantity)").
		Count(&open).Error; err != nil {
		return nil, err
	}
	r.UninvoicedMasters = int(open)
	return r, nil
}

type statusTotalsResponse struct {
	Count     int    `json:"count"`
	Total     string `json:"total"`
	Paid      string `json:"paid"`
	Remaining string `json:"remaining"`
}

type receivablesResponse struct {
	ByStatus          map[models.InvoiceStatus]statusTotalsResponse `json:"by_status"`
	Outstanding       string                                        `json:"outstanding"`
	Overdue           string                                        `json:"overdue"`
	OverdueCount      int                                           `json:"overdue_count"`
	UninvoicedMasters int                                           `json:"uninvoiced_masters"`
}

// GET /api/dashboard/receivables
func ReceivablesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := ReceivablesSummary(c.UserContext(), db, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}

		resp := receivablesResponse{
			ByStatus:          make(map[models.InvoiceStatus]statusTotalsResponse, len(r.ByStatus)),
			Outstanding:       r.Outstanding.StringFixed(2),
			Overdue:           r.Overdue.StringFixed(2),
			OverdueCount:      r.OverdueCount,
			UninvoicedMasters: r.UninvoicedMasters,
		}
		for status, st := range r.ByStatus {
			resp.ByStatus[status] = statusTotalsResponse{
				Count:     st.Count,
				Total:     st.Total.StringFixed(2),
				Paid:      st.Paid.StringFixed(2),
				Remaining: st.Remaining.StringFixed(2),
			}
		}
		return c.JSON(resp)
	}
}
