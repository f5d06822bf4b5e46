// Package ledger tracks how much of each master invoice item has been carried
// into child invoices.
//
// Every function that mutates takes the caller's transaction. Rows are read
// with FOR UPDATE and written with a compare-and-set on fulfilled_quantity, so
// 0 <= fulfilled <= total holds even when two writers race.
package ledger

import (
	"context"
	"fmt"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Remaining is total minus fulfilled.
func Remaining(item models.InvoiceItem) decimal.Decimal {
	return item.TotalQuantity.Sub(item.FulfilledQuantity)
}

// CheckReserve reports whether qty can be taken from item without touching the store.
func CheckReserve(item models.InvoiceItem, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return &apperror.ValidationError{
			Err:   apperror.ErrInvalidQuantity,
			Field: "quantity",
			Msg:   fmt.Sprintf("kalem %d için miktar negatif olamaz", item.ID),
		}
	}
	remaining := Remaining(item)
	if qty.GreaterThan(remaining) {
		return &apperror.OverAllocationError{ItemID: item.ID, Requested: qty, MaxAllowed: remaining}
	}
	return nil
}

// CheckRelease reports whether qty can be given back to item.
func CheckRelease(item models.InvoiceItem, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return &apperror.ValidationError{
			Err:   apperror.ErrInvalidQuantity,
			Field: "quantity",
			Msg:   fmt.Sprintf("kalem %d için miktar negatif olamaz", item.ID),
		}
	}
	if qty.GreaterThan(item.FulfilledQuantity) {
		return &apperror.InvalidReleaseError{ItemID: item.ID, Requested: qty, Fulfilled: item.FulfilledQuantity}
	}
	return nil
}

// LockItems loads the items of an invoice ordered by id, holding row locks
// until tx ends.
func LockItems(ctx context.Context, tx *gorm.DB, invoiceID uint) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperror.Persistence("lock items", err)
	}
	return items, nil
}

// Reserve increases item's fulfilled quantity by qty. item must have been read
// inside tx; on success it reflects the stored value.
func Reserve(ctx context.Context, tx *gorm.DB, item *models.InvoiceItem, qty decimal.Decimal) error {
	if err := CheckReserve(*item, qty); err != nil {
		return err
	}
	if qty.IsZero() {
		return nil
	}
	return swapFulfilled(ctx, tx, item, item.FulfilledQuantity.Add(qty), "reserve")
}

// Release decreases item's fulfilled quantity by qty.
func Release(ctx context.Context, tx *gorm.DB, item *models.InvoiceItem, qty decimal.Decimal) error {
	if err := CheckRelease(*item, qty); err != nil {
		return err
	}
	if qty.IsZero() {
		return nil
	}
	return swapFulfilled(ctx, tx, item, item.FulfilledQuantity.Sub(qty), "release")
}

func swapFulfilled(ctx context.Context, tx *gorm.DB, item *models.InvoiceItem, next decimal.Decimal, op string) error {
	res := tx.WithContext(ctx).
		Model(&models.InvoiceItem{}).
		Where("id = ? AND fulfilled_quantity = ?", item.ID, item.FulfilledQuantity).
		Update("fulfilled_quantity", next)
	if res.Error != nil {
		return apperror.Persistence(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return &apperror.PersistenceError{Op: op, Err: apperror.ErrStaleQuantity}
	}
	item.FulfilledQuantity = next
	return nil
}

// Balance is the read model of one master item.
type Balance struct {
	ItemID      uint
	Description string
	Total       decimal.Decimal
	Fulfilled   decimal.Decimal
	Remaining   decimal.Decimal
}

// Balances reads the per-item quantities of a master invoice without locking.
func Balances(ctx context.Context, db *gorm.DB, invoiceID uint) ([]Balance, error) {
	var items []models.InvoiceItem
	if err := db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, apperror.Persistence("balances", err)
	}
	out := make([]Balance, 0, len(items))
	for _, it := range items {
		out = append(out, Balance{
			ItemID:      it.ID,
			Description: it.Description,
			Total:       it.TotalQuantity,
			Fulfilled:   it.FulfilledQuantity,
			Remaining:   Remaining(it),
		})
	}
	return out, nil
}
