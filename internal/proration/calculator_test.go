package proration

import (
	"errors"
	"testing"

	"invoicing-backend/internal/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func sampleMaster() Reference {
	return Reference{
		Items: []MasterItem{
			{ID: 1, TotalQuantity: d("10"), UnitPrice: d("50")},
			{ID: 2, TotalQuantity: d("10"), UnitPrice: d("50")},
		},
		Discount:        d("100"),
		CGST:            d("81"),
		SGST:            d("81"),
		IGST:            decimal.Zero,
		ShippingCharges: d("50"),
	}
}

func TestComputeHalfOfOneItem(t *testing.T) {
	b, err := Compute(sampleMaster(), []Selected{{ItemID: 1, Quantity: d("5")}})
	require.NoError(t, err)

	assertDec(t, "250", b.Subtotal, "subtotal")
	assertDec(t, "25", b.Discount, "discount")
	assertDec(t, "225", b.AfterDiscount, "afterDiscount")
	assertDec(t, "9", b.Rates.CGST, "cgstRate")
	assertDec(t, "9", b.Rates.SGST, "sgstRate")
	assertDec(t, "0", b.Rates.IGST, "igstRate")
	assertDec(t, "20.25", b.CGST, "cgst")
	assertDec(t, "20.25", b.SGST, "sgst")
	assertDec(t, "0", b.IGST, "igst")
	assertDec(t, "12.5", b.ShippingCharges, "shipping")
	assertDec(t, "278", b.Total, "total")
	assert.Equal(t, "278.00", b.Rounded().Total.StringFixed(2))

	require.Len(t, b.Lines, 1)
	assertDec(t, "250", b.Lines[0].Amount, "line amount")
}

func TestComputeFullSelectionReproducesMaster(t *testing.T) {
	b, err := Compute(sampleMaster(), []Selected{
		{ItemID: 1, Quantity: d("10")},
		{ItemID: 2, Quantity: d("10")},
	})
	require.NoError(t, err)

	assertDec(t, "1000", b.Subtotal, "subtotal")
	assertDec(t, "100", b.Discount, "discount")
	assertDec(t, "81", b.CGST, "cgst")
	assertDec(t, "81", b.SGST, "sgst")
	assertDec(t, "50", b.ShippingCharges, "shipping")
	assertDec(t, "1112", b.Total, "total")
}

func TestShippingIsProratedByUnitsNotValue(t *testing.T) {
	ref := Reference{
		Items: []MasterItem{
			{ID: 1, TotalQuantity: d("1"), UnitPrice: d("900")},
			{ID: 2, TotalQuantity: d("3"), UnitPrice: d("100")},
		},
		ShippingCharges: d("40"),
	}

	b, err := Compute(ref, []Selected{{ItemID: 1, Quantity: d("1")}})
	require.NoError(t, err)

	assertDec(t, "10", b.ShippingCharges, "shipping")
	assertDec(t, "0", b.Discount, "discount")
}

func TestTaxUsesDerivedRateNotScaledAmount(t *testing.T) {
	// value share is 1/3 while unit share is 1/2
	ref := Reference{
		Items: []MasterItem{
			{ID: 1, TotalQuantity: d("1"), UnitPrice: d("200")},
			{ID: 2, TotalQuantity: d("1"), UnitPrice: d("100")},
		},
		Discount: d("0"),
		IGST:     d("54"),
	}

	b, err := Compute(ref, []Selected{{ItemID: 2, Quantity: d("1")}})
	require.NoError(t, err)

	assertDec(t, "18", b.Rates.IGST, "igstRate")
	assertDec(t, "18", b.IGST, "igst")
	assert.False(t, b.IGST.Equal(d("27")), "tax must not be scaled by quantity ratio")
}

func TestRoundingHappensOnlyAtTheEnd(t *testing.T) {
	ref := Reference{
		Items:    []MasterItem{{ID: 1, TotalQuantity: d("2"), UnitPrice: d("150")}},
		Discount: decimal.Zero,
		CGST:     d("10"),
	}

	b, err := Compute(ref, []Selected{{ItemID: 1, Quantity: d("1")}})
	require.NoError(t, err)

	// rate 3.333...% has no finite decimal form; the raw tax is just under 5
	assert.True(t, b.CGST.LessThan(d("5")))
	assert.Equal(t, "5.00", b.Rounded().CGST.StringFixed(2))
}

func TestDegenerateMasterYieldsZeroDiscountAndTax(t *testing.T) {
	ref := Reference{
		Items: []MasterItem{
			{ID: 1, TotalQuantity: d("4"), UnitPrice: decimal.Zero},
			{ID: 2, TotalQuantity: d("6"), UnitPrice: decimal.Zero},
		},
		Discount:        d("10"),
		CGST:            d("5"),
		SGST:            d("5"),
		IGST:            d("5"),
		ShippingCharges: d("20"),
	}

	b, err := Compute(ref, []Selected{{ItemID: 1, Quantity: d("2")}})
	require.NoError(t, err)

	assertDec(t, "0", b.Subtotal, "subtotal")
	assertDec(t, "0", b.Discount, "discount")
	assertDec(t, "0", b.CGST, "cgst")
	assertDec(t, "0", b.SGST, "sgst")
	assertDec(t, "0", b.IGST, "igst")
	assertDec(t, "4", b.ShippingCharges, "shipping")
	assertDec(t, "4", b.Total, "total")
}

func TestDiscountCoveringWholeMasterZeroesRates(t *testing.T) {
	ref := Reference{
		Items:    []MasterItem{{ID: 1, TotalQuantity: d("1"), UnitPrice: d("100")}},
		Discount: d("100"),
		CGST:     d("3"),
	}

	rates := ref.EffectiveRates()
	assert.True(t, rates.CGST.IsZero())
}

func TestComputeRejectsUnknownDuplicateAndNegative(t *testing.T) {
	_, err := Compute(sampleMaster(), []Selected{{ItemID: 99, Quantity: d("1")}})
	assert.True(t, errors.Is(err, apperror.ErrUnknownItem))
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = Compute(sampleMaster(), []Selected{
		{ItemID: 1, Quantity: d("1")},
		{ItemID: 1, Quantity: d("2")},
	})
	assert.True(t, errors.Is(err, apperror.ErrDuplicateItem))

	_, err = Compute(sampleMaster(), []Selected{{ItemID: 2, Quantity: d("-1")}})
	assert.True(t, errors.Is(err, apperror.ErrInvalidQuantity))
}

func TestComputeRejectsQuantityBeyondUnitPlaces(t *testing.T) {
	_, err := Compute(sampleMaster(), []Selected{{ItemID: 1, Quantity: d("0.000001")}})
	assert.True(t, errors.Is(err, apperror.ErrInvalidQuantity))

	b, err := Compute(sampleMaster(), []Selected{{ItemID: 1, Quantity: d("0.0001")}})
	require.NoError(t, err)
	assertDec(t, "0.005", b.Subtotal, "subtotal")

	assert.True(t, FitsUnitPlaces(d("10.1234")))
	assert.False(t, FitsUnitPlaces(d("10.12345")))
	assert.True(t, FitsUnitPlaces(d("10.12340")))
}

func TestComputeMasterAppliesRatesAfterDiscount(t *testing.T) {
	items := []MasterItem{
		{ID: 1, TotalQuantity: d("10"), UnitPrice: d("50")},
		{ID: 2, TotalQuantity: d("10"), UnitPrice: d("50")},
	}
	b := ComputeMaster(items, d("100"), Rates{CGST: d("9"), SGST: d("9"), IGST: decimal.Zero}, d("50"))

	assertDec(t, "1000", b.Subtotal, "subtotal")
	assertDec(t, "81", b.CGST, "cgst")
	assertDec(t, "81", b.SGST, "sgst")
	assertDec(t, "1112", b.Total, "total")
	assertDec(t, "20", b.SelectedUnits(), "units")
}
