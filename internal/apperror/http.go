package apperror

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error of this package to a response status; anything
// else is 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrConsistency):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNumbering):
		return http.StatusFailedDependency
	case errors.Is(err, ErrStaleQuantity), errors.Is(err, ErrPersistence):
		return http.StatusConflict
	case errors.Is(err, ErrInvoiceVoid), errors.Is(err, ErrHasPayments):
		return http.StatusConflict
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrOverAllocation),
		errors.Is(err, ErrInvalidRelease),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrNotMaster),
		errors.Is(err, ErrNotChild),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrUnknownItem),
		errors.Is(err, ErrDuplicateItem):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Message is the caller-facing text of err. Persistence and consistency
// failures are not echoed verbatim since they may carry driver details.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrConsistency):
		return "Veri tutarlılığı bozulmuş olabilir, yöneticinize başvurun"
	case errors.Is(err, ErrStaleQuantity):
		return "Kalem miktarları eşzamanlı olarak değişti, lütfen tekrar deneyin"
	case errors.Is(err, ErrNumbering):
		return "Belge numarası alınamadı, lütfen tekrar deneyin"
	case errors.Is(err, ErrPersistence):
		return "Kayıt sırasında hata oluştu"
	case errors.Is(err, ErrNotFound):
		return "Kayıt bulunamadı"
	case errors.Is(err, ErrNotMaster):
		return "Bu işlem yalnızca master faturalar için yapılabilir"
	case errors.Is(err, ErrNotChild):
		return "Bu işlem yalnızca alt faturalar için yapılabilir"
	case errors.Is(err, ErrInvoiceVoid):
		return "Fatura iptal edilmiş"
	case errors.Is(err, ErrHasPayments):
		return "Ödemesi olan fatura iptal edilemez"
	}
	return err.Error()
}

// Details returns the machine-readable fields a caller needs to correct its
// input, or nil.
func Details(err error) map[string]any {
	var over *OverAllocationError
	if errors.As(err, &over) {
		return map[string]any{
			"item_id":     over.ItemID,
			"requested":   over.Requested.String(),
			"max_allowed": over.MaxAllowed.String(),
			"error_code":  "over_allocation",
		}
	}
	var pay *OverpaymentError
	if errors.As(err, &pay) {
		return map[string]any{
			"invoice_id":  pay.InvoiceID,
			"requested":   pay.Requested.StringFixed(2),
			"max_allowed": pay.MaxAllowed.StringFixed(2),
			"error_code":  "overpayment",
		}
	}
	var rel *InvalidReleaseError
	if errors.As(err, &rel) {
		return map[string]any{
			"item_id":    rel.ItemID,
			"requested":  rel.Requested.String(),
			"fulfilled":  rel.Fulfilled.String(),
			"error_code": "invalid_release",
		}
	}
	var empty *EmptySelectionError
	if errors.As(err, &empty) {
		return map[string]any{"error_code": "empty_selection"}
	}
	var val *ValidationError
	if errors.As(err, &val) && val.Field != "" {
		return map[string]any{"field": val.Field, "error_code": "validation"}
	}
	return nil
}
