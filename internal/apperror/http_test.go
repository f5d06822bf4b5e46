package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Invalid("amount", "boş"), http.StatusBadRequest},
		{"empty selection", &EmptySelectionError{}, http.StatusBadRequest},
		{"over allocation", &OverAllocationError{ItemID: 1}, http.StatusBadRequest},
		{"overpayment", &OverpaymentError{InvoiceID: 1}, http.StatusBadRequest},
		{"not found", fmt.Errorf("fatura 3: %w", ErrNotFound), http.StatusNotFound},
		{"numbering", &NumberingServiceError{DocumentType: "invoice", Err: errors.New("down")}, http.StatusFailedDependency},
		{"stale", Persistence("reserve", ErrStaleQuantity), http.StatusConflict},
		{"has payments", ErrHasPayments, http.StatusConflict},
		{"consistency wins", errors.Join(ErrConsistency, ErrOverAllocation), http.StatusInternalServerError},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPersistenceKeepsDomainErrors(t *testing.T) {
	over := &OverAllocationError{ItemID: 2}
	assert.Same(t, over, Persistence("create", over))
	assert.Nil(t, Persistence("create", nil))

	wrapped := Persistence("create", errors.New("disk full"))
	assert.True(t, errors.Is(wrapped, ErrPersistence))
	assert.Equal(t, "Kayıt sırasında hata oluştu", Message(wrapped))
}

func TestDetails(t *testing.T) {
	d := Details(&OverAllocationError{ItemID: 7, Requested: decimal.NewFromInt(6), MaxAllowed: decimal.NewFromInt(5)})
	assert.Equal(t, "over_allocation", d["error_code"])
	assert.Equal(t, "5", d["max_allowed"])
	assert.Equal(t, uint(7), d["item_id"])

	d = Details(fmt.Errorf("ödeme: %w", &OverpaymentError{MaxAllowed: decimal.RequireFromString("278")}))
	assert.Equal(t, "278.00", d["max_allowed"])

	d = Details(Invalid("quantity", "negatif"))
	assert.Equal(t, "quantity", d["field"])

	assert.Nil(t, Details(errors.New("boom")))
}

func TestIsDomain(t *testing.T) {
	assert.True(t, IsDomain(&EmptySelectionError{}))
	assert.True(t, IsDomain(Invalid("x", "y")))
	assert.False(t, IsDomain(errors.New("boom")))
}
