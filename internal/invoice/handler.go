package invoice

import (
	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func invoiceIDParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz fatura ID")
	}
	return uint(id), nil
}

func actorOf(c *fiber.Ctx) Actor {
	id, name, _ := auth.CurrentUser(c)
	return Actor{UserID: id, UserName: name}
}

// POST /api/invoices
func CreateMasterInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMasterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		in, err := body.toInput()
		if err != nil {
			return err
		}

		inv, err := svc.CreateMasterInvoice(c.UserContext(), in, actorOf(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(inv))
	}
}

// GET /api/invoices/:id
func GetInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		inv, err := svc.GetInvoice(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(toInvoiceResponse(inv))
	}
}

// GET /api/invoices/:id/children
func ListChildInvoicesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		children, err := svc.ListChildInvoices(c.UserContext(), id)
		if err != nil {
			return err
		}
		resp := make([]InvoiceResponse, 0, len(children))
		for i := range children {
			resp = append(resp, toInvoiceResponse(&children[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/invoices/:id/balances
func ItemBalancesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		balances, err := svc.ItemBalances(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(toBalanceResponses(balances))
	}
}

// POST /api/invoices/:id/preview-child-invoice
func PreviewChildInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		var body CreateChildRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		preview, err := svc.PreviewChildInvoice(c.UserContext(), id, toSelection(body.Items))
		if err != nil {
			return err
		}
		return c.JSON(toPreviewResponse(preview))
	}
}

// POST /api/invoices/:id/create-child-invoice
func CreateChildInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		var body CreateChildRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		in, err := body.toInput()
		if err != nil {
			return err
		}

		child, err := svc.CreateChildInvoice(c.UserContext(), id, in, actorOf(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(child))
	}
}

// POST /api/invoices/:id/void
func VoidChildInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := invoiceIDParam(c)
		if err != nil {
			return err
		}
		var body VoidRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return apperror.Invalid("reason", "Geçersiz istek gövdesi")
			}
		}

		child, err := svc.VoidChildInvoice(c.UserContext(), id, body.Reason, actorOf(c))
		if err != nil {
			return err
		}
		return c.JSON(toInvoiceResponse(child))
	}
}
