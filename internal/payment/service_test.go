package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/events"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var tester = Actor{UserID: 1, UserName: "Kasa"}

func seedInvoice(t *testing.T, db *gorm.DB, total string) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber:   "INV-2026-" + total,
		IsMaster:        true,
		Status:          models.InvoiceStatusSent,
		IssueDate:       time.Now(),
		Subtotal:        dec(total),
		Total:           dec(total),
		PaidAmount:      decimal.Zero,
		RemainingAmount: dec(total),
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	return NewService(db, events.NewOutbox(db)), db
}

func pay(amount string) ApplyInput {
	return ApplyInput{Amount: dec(amount), Method: models.PaymentMethodBankTransfer}
}

func TestPartialThenExactPayment(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "500")
	ctx := context.Background()

	res, err := svc.ApplyPayment(ctx, inv.ID, pay("490"), tester)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, res.Invoice.Status)
	assert.Equal(t, "10.00", res.Invoice.RemainingAmount.StringFixed(2))

	res, err = svc.ApplyPayment(ctx, inv.ID, pay("10"), tester)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, res.Invoice.Status)
	assert.True(t, res.Invoice.RemainingAmount.IsZero())

	var stored models.Invoice
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusPaid, stored.Status)
	assert.True(t, stored.PaidAmount.Equal(dec("500")))
	assert.True(t, stored.RemainingAmount.IsZero())

	var n int64
	require.NoError(t, db.Model(&models.DomainEvent{}).Where("event_type = ?", events.EventPaymentApplied).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestOverpaymentOnSettledInvoice(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "500")
	ctx := context.Background()

	_, err := svc.ApplyPayment(ctx, inv.ID, pay("500"), tester)
	require.NoError(t, err)

	_, err = svc.ApplyPayment(ctx, inv.ID, pay("0.01"), tester)
	var over *apperror.OverpaymentError
	require.True(t, errors.As(err, &over))
	assert.True(t, over.MaxAllowed.IsZero())

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestOverpaymentReportsMaxAllowed(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "278")

	_, err := svc.ApplyPayment(context.Background(), inv.ID, pay("300"), tester)
	var over *apperror.OverpaymentError
	require.True(t, errors.As(err, &over))
	assert.Equal(t, "278.00", over.MaxAllowed.StringFixed(2))
	assert.Equal(t, 400, apperror.HTTPStatus(err))

	var stored models.Invoice
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusSent, stored.Status)
	assert.True(t, stored.PaidAmount.IsZero())
}

func TestApplyPaymentValidation(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "100")
	ctx := context.Background()

	_, err := svc.ApplyPayment(ctx, inv.ID, pay("0"), tester)
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	_, err = svc.ApplyPayment(ctx, inv.ID, pay("-5"), tester)
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	_, err = svc.ApplyPayment(ctx, inv.ID, pay("1.005"), tester)
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	_, err = svc.ApplyPayment(ctx, inv.ID, ApplyInput{Amount: dec("1"), Method: "barter"}, tester)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = svc.ApplyPayment(ctx, 4242, pay("1"), tester)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestApplyPaymentRejectsVoidInvoice(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "100")
	require.NoError(t, db.Model(&inv).Update("status", models.InvoiceStatusVoid).Error)

	_, err := svc.ApplyPayment(context.Background(), inv.ID, pay("10"), tester)
	assert.True(t, errors.Is(err, apperror.ErrInvoiceVoid))
}

func TestConcurrentPaymentsNeverExceedTotal(t *testing.T) {
	svc, db := newService(t)
	inv := seedInvoice(t, db, "100")

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyPayment(context.Background(), inv.ID, pay("30"), tester)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, apperror.ErrOverpayment), "unexpected error: %v", err)
	}
	assert.Equal(t, 3, ok)

	payments, err := svc.ListPayments(context.Background(), inv.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(dec("90")))
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, models.InvoiceStatusPaid, nextStatus(models.InvoiceStatusSent, dec("10"), decimal.Zero))
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, nextStatus(models.InvoiceStatusSent, dec("10"), dec("4")))
	assert.Equal(t, models.InvoiceStatusDraft, nextStatus(models.InvoiceStatusDraft, dec("10"), dec("10")))
}
