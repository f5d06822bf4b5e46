// Package importer turns a spreadsheet export of a quote or sales order into
// master invoice item inputs.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"invoicing-backend/internal/apperror"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Item is one parsed row: description, quantity, unit price and an optional
// product id, in that column order.
type Item struct {
	Row         int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	ProductID   *uint
}

const maxRows = 5000

// ParseItems reads the first sheet of an xlsx workbook. A first row whose
// quantity column is not numeric is treated as a header. Blank rows are
// skipped; any other malformed row fails the whole import.
func ParseItems(r io.Reader) ([]Item, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.Invalid("file", "Excel dosyası okunamadı: "+err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperror.Invalid("file", "Excel dosyasında sheet bulunamadı")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperror.Invalid("file", "Sheet okunamadı: "+err.Error())
	}
	if len(rows) == 0 {
		return nil, apperror.Invalid("file", "Excel dosyası boş")
	}
	if len(rows) > maxRows {
		return nil, apperror.Invalid("file", fmt.Sprintf("en fazla %d satır içe aktarılabilir", maxRows))
	}

	start := 0
	if isHeader(rows[0]) {
		start = 1
	}

	var items []Item
	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNo := i + 1
		if blank(row) {
			continue
		}
		if len(row) < 3 {
			return nil, rowError(rowNo, "açıklama, miktar ve birim fiyat kolonları zorunlu")
		}

		desc := strings.TrimSpace(row[0])
		if desc == "" {
			return nil, rowError(rowNo, "açıklama boş olamaz")
		}
		qty, err := parseNumber(row[1])
		if err != nil || !qty.IsPositive() {
			return nil, rowError(rowNo, fmt.Sprintf("geçersiz miktar: %q", row[1]))
		}
		price, err := parseNumber(row[2])
		if err != nil || price.IsNegative() {
			return nil, rowError(rowNo, fmt.Sprintf("geçersiz birim fiyat: %q", row[2]))
		}

		item := Item{Row: rowNo, Description: desc, Quantity: qty, UnitPrice: price}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			pid, err := strconv.ParseUint(strings.TrimSpace(row[3]), 10, 64)
			if err != nil || pid == 0 {
				return nil, rowError(rowNo, fmt.Sprintf("geçersiz ürün ID: %q", row[3]))
			}
			id := uint(pid)
			item.ProductID = &id
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, apperror.Invalid("file", "dosyada kalem bulunamadı")
	}
	return items, nil
}

func isHeader(row []string) bool {
	if len(row) < 2 {
		return true
	}
	_, err := parseNumber(row[1])
	return err != nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowError(row int, msg string) error {
	return apperror.Invalid("file", fmt.Sprintf("%d. satır: %s", row, msg))
}

// parseNumber accepts plain cell values ("1234.5") and formatted ones in either
// convention ("1.234,50", "1,234.50"). With both separators present the last
// one is the decimal mark; a lone comma is a decimal comma.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "TL")
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return decimal.Zero, fmt.Errorf("boş değer")
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
