package dashboard

import (
	"context"
	"testing"
	"time"

	"invoicing-backend/internal/models"
	"invoicing-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Çarşamba
var now = time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)

func seedInvoice(t *testing.T, db *gorm.DB, number string, master bool, status models.InvoiceStatus, total, paid string, due *time.Time) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber:   number,
		IsMaster:        master,
		Status:          status,
		IssueDate:       now.AddDate(0, 0, -30),
		DueDate:         due,
		Subtotal:        dec(total),
		Total:           dec(total),
		PaidAmount:      dec(paid),
		RemainingAmount: dec(total).Sub(dec(paid)),
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func seedPayment(t *testing.T, db *gorm.DB, invoiceID uint, amount string, method models.PaymentMethod, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Payment{
		InvoiceID:   invoiceID,
		Amount:      dec(amount),
		Method:      method,
		PaymentDate: at,
	}).Error)
}

func TestBucketStart(t *testing.T) {
	assert.Equal(t, "2026-03-16", bucketStart(PeriodWeekly, now).Format("2006-01-02"))
	assert.Equal(t, "2026-03-01", bucketStart(PeriodMonthly, now).Format("2006-01-02"))
	assert.Equal(t, "2026-03-18", bucketStart(PeriodDaily, now).Format("2006-01-02"))

	sunday := time.Date(2026, 3, 22, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-16", bucketStart(PeriodWeekly, sunday).Format("2006-01-02"))
}

func TestCollectionsDaily(t *testing.T) {
	db := testutil.NewDB(t)
	inv := seedInvoice(t, db, "INV-1", false, models.InvoiceStatusPartiallyPaid, "1000", "0", nil)

	seedPayment(t, db, inv.ID, "100", models.PaymentMethodCash, now.Add(-2*time.Hour))
	seedPayment(t, db, inv.ID, "50.25", models.PaymentMethodBankTransfer, now.Add(-3*time.Hour))
	seedPayment(t, db, inv.ID, "200", models.PaymentMethodCard, now.AddDate(0, 0, -2))
	// pencere dışı
	seedPayment(t, db, inv.ID, "999", models.PaymentMethodCash, now.AddDate(0, 0, -10))

	chart, err := Collections(context.Background(), db, PeriodDaily, 3, now)
	require.NoError(t, err)
	require.Len(t, chart.Points, 3)

	assert.Equal(t, "2026-03-16", chart.Points[0].Label)
	assert.Equal(t, "200.00", chart.Points[0].Total.StringFixed(2))
	assert.True(t, chart.Points[1].Total.IsZero())
	assert.Equal(t, "2026-03-18", chart.Points[2].Label)
	assert.Equal(t, "150.25", chart.Points[2].Total.StringFixed(2))
	assert.Equal(t, "100.00", chart.Points[2].ByMethod[models.PaymentMethodCash].StringFixed(2))
	assert.Equal(t, "350.25", chart.Total.StringFixed(2))
}

func TestCollectionsDefaultsCount(t *testing.T) {
	db := testutil.NewDB(t)
	chart, err := Collections(context.Background(), db, PeriodMonthly, 0, now)
	require.NoError(t, err)
	assert.Len(t, chart.Points, 12)
	assert.Equal(t, "2025-04-01", chart.Points[0].Label)
	assert.True(t, chart.Total.IsZero())
}

func TestReceivablesSummary(t *testing.T) {
	db := testutil.NewDB(t)
	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	seedInvoice(t, db, "INV-M", true, models.InvoiceStatusDraft, "5000", "0", nil)
	seedInvoice(t, db, "INV-1", false, models.InvoiceStatusPartiallyPaid, "300", "100", &past)
	seedInvoice(t, db, "INV-2", false, models.InvoiceStatusDraft, "200", "0", &future)
	seedInvoice(t, db, "INV-3", false, models.InvoiceStatusPaid, "150", "150", &past)
	seedInvoice(t, db, "INV-4", false, models.InvoiceStatusVoid, "80", "0", &past)

	r, err := ReceivablesSummary(context.Background(), db, now)
	require.NoError(t, err)

	assert.Equal(t, "400.00", r.Outstanding.StringFixed(2))
	assert.Equal(t, "200.00", r.Overdue.StringFixed(2))
	assert.Equal(t, 1, r.OverdueCount)
	assert.Equal(t, 1, r.ByStatus[models.InvoiceStatusVoid].Count)
	assert.True(t, r.ByStatus[models.InvoiceStatusVoid].Total.IsZero())
	assert.Equal(t, "150.00", r.ByStatus[models.InvoiceStatusPaid].Paid.StringFixed(2))
	// master'ın kalemi yok
	assert.Equal(t, 0, r.UninvoicedMasters)
}

func TestReceivablesCountsOpenMasters(t *testing.T) {
	db := testutil.NewDB(t)
	m := seedInvoice(t, db, "INV-M", true, models.InvoiceStatusDraft, "1000", "0", nil)
	require.NoError(t, db.Create(&models.InvoiceItem{
		InvoiceID:         m.ID,
		Description:       "Item A",
		TotalQuantity:     dec("10"),
		FulfilledQuantity: dec("4"),
		UnitPrice:         dec("100"),
	}).Error)

	r, err := ReceivablesSummary(context.Background(), db, now)
	require.NoError(t, err)
	assert.Equal(t, 1, r.UninvoicedMasters)
}
