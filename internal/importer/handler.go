package importer

import (
	"github.com/gofiber/fiber/v2"
)

type ItemResponse struct {
	Row         int    `json:"row"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	ProductID   *uint  `json:"product_id"`
}

// POST /api/invoices/import-items (multipart, field "file")
// Yalnızca parse eder; master fatura POST /api/invoices ile oluşturulur.
func ImportItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası gerekli (file)")
		}
		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya açılamadı")
		}
		defer file.Close()

		items, err := ParseItems(file)
		if err != nil {
			return err
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, ItemResponse{
				Row:         it.Row,
				Description: it.Description,
				Quantity:    it.Quantity.String(),
				UnitPrice:   it.UnitPrice.StringFixed(2),
				ProductID:   it.ProductID,
			})
		}
		return c.JSON(fiber.Map{
			"items": resp,
			"count": len(resp),
		})
	}
}
