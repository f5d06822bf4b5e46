package importer

import (
	"bytes"
	"errors"
	"testing"

	"invoicing-backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseItemsWithHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Açıklama", "Miktar", "Birim Fiyat", "Ürün ID"},
		{"Kablo 3x2.5", 10, 50, 7},
		{},
		{"Montaj", "2,5", "1.200,00", ""},
	})

	items, err := ParseItems(buf)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Kablo 3x2.5", items[0].Description)
	assert.Equal(t, "10", items[0].Quantity.String())
	assert.Equal(t, "50", items[0].UnitPrice.String())
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, uint(7), *items[0].ProductID)

	assert.Equal(t, 4, items[1].Row)
	assert.Equal(t, "2.5", items[1].Quantity.String())
	assert.Equal(t, "1200", items[1].UnitPrice.String())
	assert.Nil(t, items[1].ProductID)
}

func TestParseItemsWithoutHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Panel", 4, 125.5},
	})
	items, err := ParseItems(buf)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "125.5", items[0].UnitPrice.String())
}

func TestParseItemsRejectsBadRows(t *testing.T) {
	cases := map[string][][]any{
		"zero quantity":  {{"Panel", 0, 10}},
		"negative price": {{"Panel", 1, -10}},
		"missing price":  {{"Panel", 1}},
		"bad product":    {{"Panel", 1, 10, "abc"}},
		"only header":    {{"Açıklama", "Miktar", "Birim Fiyat"}},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseItems(workbook(t, rows))
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestParseItemsRejectsNonExcel(t *testing.T) {
	_, err := ParseItems(bytes.NewBufferString("not a workbook"))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]string{
		"1234.5":     "1234.5",
		"1.234,56":   "1234.56",
		"1,234.56":   "1234.56",
		"2,5":        "2.5",
		" 99 TL":     "99",
		"1 000,25":   "1000.25",
	} {
		got, err := parseNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
	_, err := parseNumber("")
	assert.Error(t, err)
}
