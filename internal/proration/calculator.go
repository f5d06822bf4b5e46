// Package proration computes the financial fields of a partial invoice from the
// stored amounts of its master invoice.
//
// Discount is split in proportion to the value carried into the child. Tax is
// not split: the effective cgst/sgst/igst rates are derived from the master's
// stored amounts and re-applied to the child's discounted base. Shipping is
// split by unit count, independent of price. Amounts keep full precision until
// Rounded is called on the result.
package proration

import (
	"fmt"

	"invoicing-backend/internal/apperror"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision of every stored monetary field.
const MoneyPlaces = 2

// UnitPlaces is the precision of stored quantities and unit prices. Values
// with more places would be rounded by the column and no longer reproduce the
// amounts computed from them.
const UnitPlaces = 4

// FitsUnitPlaces reports whether d can be stored as a quantity or unit price
// without rounding.
func FitsUnitPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Round(UnitPlaces))
}

var hundred = decimal.NewFromInt(100)

type MasterItem struct {
	ID            uint
	TotalQuantity decimal.Decimal
	UnitPrice     decimal.Decimal
}

// Reference is the master invoice as seen by the calculator: all of its items
// plus its stored (already computed) amounts.
type Reference struct {
	Items           []MasterItem
	Discount        decimal.Decimal
	CGST            decimal.Decimal
	SGST            decimal.Decimal
	IGST            decimal.Decimal
	ShippingCharges decimal.Decimal
}

type Selected struct {
	ItemID   uint
	Quantity decimal.Decimal
}

// Rates are percentages, e.g. 9 for 9%.
type Rates struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

type Line struct {
	ItemID    uint
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

type Breakdown struct {
	Lines           []Line
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	AfterDiscount   decimal.Decimal
	CGST            decimal.Decimal
	SGST            decimal.Decimal
	IGST            decimal.Decimal
	ShippingCharges decimal.Decimal
	Total           decimal.Decimal
	Rates           Rates
}

// MasterSubtotal is Σ totalQuantity × unitPrice over every item of the master.
func (r Reference) MasterSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.TotalQuantity.Mul(it.UnitPrice))
	}
	return sum
}

// MasterUnits is Σ totalQuantity over every item of the master.
func (r Reference) MasterUnits() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.TotalQuantity)
	}
	return sum
}

// EffectiveRates back-derives the tax rates the master paid on its discounted
// base. A non-positive base yields zero rates.
func (r Reference) EffectiveRates() Rates {
	base := r.MasterSubtotal().Sub(r.Discount)
	if !base.IsPositive() {
		return Rates{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	}
	rate := func(amount decimal.Decimal) decimal.Decimal {
		return amount.Div(base).Mul(hundred)
	}
	return Rates{CGST: rate(r.CGST), SGST: rate(r.SGST), IGST: rate(r.IGST)}
}

// Compute prorates the master's amounts over the selected quantities. It does
// not consult remaining quantities; callers validate against the ledger first.
func Compute(ref Reference, selection []Selected) (Breakdown, error) {
	byID := make(map[uint]MasterItem, len(ref.Items))
	for _, it := range ref.Items {
		byID[it.ID] = it
	}

	var b Breakdown
	b.Subtotal = decimal.Zero
	selectedUnits := decimal.Zero
	seen := make(map[uint]bool, len(selection))

	for _, sel := range selection {
		item, ok := byID[sel.ItemID]
		if !ok {
			return Breakdown{}, &apperror.ValidationError{
				Err:   apperror.ErrUnknownItem,
				Field: "items",
				Msg:   fmt.Sprintf("kalem %d bu faturaya ait değil", sel.ItemID),
			}
		}
		if seen[sel.ItemID] {
			return Breakdown{}, &apperror.ValidationError{
				Err:   apperror.ErrDuplicateItem,
				Field: "items",
				Msg:   fmt.Sprintf("kalem %d birden fazla kez seçildi", sel.ItemID),
			}
		}
		seen[sel.ItemID] = true
		if sel.Quantity.IsNegative() {
			return Breakdown{}, &apperror.ValidationError{
				Err:   apperror.ErrInvalidQuantity,
				Field: "quantity",
				Msg:   fmt.Sprintf("kalem %d için miktar negatif olamaz", sel.ItemID),
			}
		}
		if !FitsUnitPlaces(sel.Quantity) {
			return Breakdown{}, &apperror.ValidationError{
				Err:   apperror.ErrInvalidQuantity,
				Field: "quantity",
				Msg:   fmt.Sprintf("kalem %d için miktar en fazla %d ondalık basamak içerebilir", sel.ItemID, UnitPlaces),
			}
		}
		if sel.Quantity.IsZero() {
			continue
		}

		amount := sel.Quantity.Mul(item.UnitPrice)
		b.Lines = append(b.Lines, Line{
			ItemID:    item.ID,
			Quantity:  sel.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    amount,
		})
		b.Subtotal = b.Subtotal.Add(amount)
		selectedUnits = selectedUnits.Add(sel.Quantity)
	}

	masterSubtotal := ref.MasterSubtotal()
	b.Discount = decimal.Zero
	if masterSubtotal.IsPositive() && ref.Discount.IsPositive() {
		b.Discount = b.Subtotal.Mul(ref.Discount).Div(masterSubtotal)
	}
	b.AfterDiscount = b.Subtotal.Sub(b.Discount)

	b.Rates = ref.EffectiveRates()
	b.CGST = b.AfterDiscount.Mul(b.Rates.CGST).Div(hundred)
	b.SGST = b.AfterDiscount.Mul(b.Rates.SGST).Div(hundred)
	b.IGST = b.AfterDiscount.Mul(b.Rates.IGST).Div(hundred)

	b.ShippingCharges = decimal.Zero
	if units := ref.MasterUnits(); units.IsPositive() {
		b.ShippingCharges = ref.ShippingCharges.Mul(selectedUnits).Div(units)
	}

	b.Total = b.AfterDiscount.Add(b.CGST).Add(b.SGST).Add(b.IGST).Add(b.ShippingCharges)
	return b, nil
}

// ComputeMaster prices a full item list 1:1: the given rates are applied to
// subtotal minus discount.
func ComputeMaster(items []MasterItem, discount decimal.Decimal, rates Rates, shipping decimal.Decimal) Breakdown {
	var b Breakdown
	b.Subtotal = decimal.Zero
	for _, it := range items {
		amount := it.TotalQuantity.Mul(it.UnitPrice)
		b.Lines = append(b.Lines, Line{
			ItemID:    it.ID,
			Quantity:  it.TotalQuantity,
			UnitPrice: it.UnitPrice,
			Amount:    amount,
		})
		b.Subtotal = b.Subtotal.Add(amount)
	}
	b.Discount = discount
	b.AfterDiscount = b.Subtotal.Sub(discount)
	b.Rates = rates
	b.CGST = b.AfterDiscount.Mul(rates.CGST).Div(hundred)
	b.SGST = b.AfterDiscount.Mul(rates.SGST).Div(hundred)
	b.IGST = b.AfterDiscount.Mul(rates.IGST).Div(hundred)
	b.ShippingCharges = shipping
	b.Total = b.AfterDiscount.Add(b.CGST).Add(b.SGST).Add(b.IGST).Add(b.ShippingCharges)
	return b
}

// Rounded returns a copy with every monetary field rounded to MoneyPlaces.
// Total is rounded from its full-precision value, not re-summed.
func (b Breakdown) Rounded() Breakdown {
	r := b
	r.Lines = make([]Line, len(b.Lines))
	for i, l := range b.Lines {
		l.Amount = l.Amount.Round(MoneyPlaces)
		r.Lines[i] = l
	}
	r.Subtotal = b.Subtotal.Round(MoneyPlaces)
	r.Discount = b.Discount.Round(MoneyPlaces)
	r.AfterDiscount = b.AfterDiscount.Round(MoneyPlaces)
	r.CGST = b.CGST.Round(MoneyPlaces)
	r.SGST = b.SGST.Round(MoneyPlaces)
	r.IGST = b.IGST.Round(MoneyPlaces)
	r.ShippingCharges = b.ShippingCharges.Round(MoneyPlaces)
	r.Total = b.Total.Round(MoneyPlaces)
	return r
}

// SelectedUnits is Σ quantity over the computed lines.
func (b Breakdown) SelectedUnits() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.Lines {
		sum = sum.Add(l.Quantity)
	}
	return sum
}
