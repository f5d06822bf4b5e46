// Package apperror holds the error taxonomy shared by the invoicing core.
//
// Validation errors (empty selection, over-allocation, invalid release,
// overpayment) are detected before any mutation. Numbering and persistence
// errors are raised after validation and leave no reservation behind.
package apperror

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("record not found")
	ErrEmptySelection  = errors.New("empty selection")
	ErrOverAllocation  = errors.New("quantity exceeds remaining")
	ErrInvalidRelease  = errors.New("release exceeds fulfilled quantity")
	ErrOverpayment     = errors.New("payment exceeds remaining balance")
	ErrNumbering       = errors.New("numbering service failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotMaster       = errors.New("invoice is not a master invoice")
	ErrNotChild        = errors.New("invoice is not a child invoice")
	ErrInvoiceVoid     = errors.New("invoice is void")
	ErrHasPayments     = errors.New("invoice has payments")
	ErrStaleQuantity   = errors.New("item quantity changed concurrently")
	ErrConsistency     = errors.New("rollback failed, manual intervention required")
	ErrUnknownItem     = errors.New("item does not belong to invoice")
	ErrDuplicateItem   = errors.New("item selected more than once")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Err   error
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// EmptySelectionError: seçimde sıfırdan büyük miktar yok.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "en az bir kalem için sıfırdan büyük miktar seçilmelidir"
}

func (e *EmptySelectionError) Unwrap() error { return ErrEmptySelection }

// OverAllocationError names the item and the largest quantity that could be taken.
type OverAllocationError struct {
	ItemID     uint
	Requested  decimal.Decimal
	MaxAllowed decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("kalem %d için istenen miktar (%s) kalan miktarı (%s) aşıyor",
		e.ItemID, e.Requested.String(), e.MaxAllowed.String())
}

func (e *OverAllocationError) Unwrap() error { return ErrOverAllocation }

// InvalidReleaseError: release would push fulfilled quantity below zero.
type InvalidReleaseError struct {
	ItemID    uint
	Requested decimal.Decimal
	Fulfilled decimal.Decimal
}

func (e *InvalidReleaseError) Error() string {
	return fmt.Sprintf("kalem %d için geri alınacak miktar (%s) karşılanan miktarı (%s) aşıyor",
		e.ItemID, e.Requested.String(), e.Fulfilled.String())
}

func (e *InvalidReleaseError) Unwrap() error { return ErrInvalidRelease }

// OverpaymentError carries the allowed maximum so callers can report it.
type OverpaymentError struct {
	InvoiceID  uint
	Requested  decimal.Decimal
	MaxAllowed decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("ödeme tutarı (%s) faturanın kalan tutarını (%s) aşamaz",
		e.Requested.StringFixed(2), e.MaxAllowed.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// NumberingServiceError wraps failures of the external numbering collaborator.
type NumberingServiceError struct {
	DocumentType string
	Err          error
}

func (e *NumberingServiceError) Error() string {
	return fmt.Sprintf("belge numarası alınamadı (%s): %v", e.DocumentType, e.Err)
}

func (e *NumberingServiceError) Unwrap() []error { return []error{ErrNumbering, e.Err} }

// PersistenceError wraps store failures; Op names the step that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("kayıt başarısız (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Persistence wraps err unless it already belongs to the taxonomy.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the typed errors of this package.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrEmptySelection, ErrOverAllocation, ErrInvalidRelease,
		ErrOverpayment, ErrNumbering, ErrPersistence, ErrNotMaster, ErrNotChild,
		ErrInvoiceVoid, ErrHasPayments, ErrStaleQuantity, ErrConsistency,
		ErrUnknownItem, ErrDuplicateItem, ErrInvalidAmount, ErrInvalidQuantity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
