package invoice

import (
	"strings"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/ledger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/proration"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type ItemRequest struct {
	Description string          `json:"description"`
	ProductID   *uint           `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateMasterRequest struct {
	ClientName      string               `json:"client_name"`
	SourceType      models.InvoiceSource `json:"source_type"`
	SourceRef       string               `json:"source_ref"`
	IssueDate       string               `json:"issue_date"` // YYYY-MM-DD
	DueDate         string               `json:"due_date"`
	Items           []ItemRequest        `json:"items"`
	Discount        decimal.Decimal      `json:"discount"`
	CGSTRate        decimal.Decimal      `json:"cgst_rate"`
	SGSTRate        decimal.Decimal      `json:"sgst_rate"`
	IGSTRate        decimal.Decimal      `json:"igst_rate"`
	ShippingCharges decimal.Decimal      `json:"shipping_charges"`
	Notes           string               `json:"notes"`
}

type SelectionRequest struct {
	ItemID   uint            `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

type CreateChildRequest struct {
	Items                []SelectionRequest `json:"items"`
	MilestoneDescription string             `json:"milestone_description"`
	DeliveryNotes        string             `json:"delivery_notes"`
	Notes                string             `json:"notes"`
	IssueDate            string             `json:"issue_date"`
	DueDate              string             `json:"due_date"`
}

type VoidRequest struct {
	Reason string `json:"reason"`
}

type InvoiceItemResponse struct {
	ID                uint   `json:"id"`
	Description       string `json:"description"`
	ProductID         *uint  `json:"product_id"`
	TotalQuantity     string `json:"total_quantity"`
	FulfilledQuantity string `json:"fulfilled_quantity"`
	RemainingQuantity string `json:"remaining_quantity"`
	UnitPrice         string `json:"unit_price"`
}

type ChildItemResponse struct {
	ID           uint   `json:"id"`
	MasterItemID uint   `json:"master_item_id"`
	Description  string `json:"description"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Amount       string `json:"amount"`
}

type PaymentLineResponse struct {
	ID          uint   `json:"id"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	PaymentDate string `json:"payment_date"`
	Reference   string `json:"reference"`
}

type InvoiceResponse struct {
	ID                   uint                  `json:"id"`
	InvoiceNumber        string                `json:"invoice_number"`
	MasterInvoiceID      *uint                 `json:"master_invoice_id"`
	IsMaster             bool                  `json:"is_master"`
	Status               models.InvoiceStatus  `json:"status"`
	ClientName           string                `json:"client_name"`
	SourceType           models.InvoiceSource  `json:"source_type"`
	SourceRef            string                `json:"source_ref"`
	IssueDate            string                `json:"issue_date"`
	DueDate              *string               `json:"due_date"`
	Subtotal             string                `json:"subtotal"`
	Discount             string                `json:"discount"`
	CGST                 string                `json:"cgst"`
	SGST                 string                `json:"sgst"`
	IGST                 string                `json:"igst"`
	ShippingCharges      string                `json:"shipping_charges"`
	Total                string                `json:"total"`
	PaidAmount           string                `json:"paid_amount"`
	RemainingAmount      string                `json:"remaining_amount"`
	MilestoneDescription string                `json:"milestone_description,omitempty"`
	DeliveryNotes        string                `json:"delivery_notes,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	Items                []InvoiceItemResponse `json:"items,omitempty"`
	ChildItems           []ChildItemResponse   `json:"child_items,omitempty"`
	Payments             []PaymentLineResponse `json:"payments,omitempty"`
}

type PreviewResponse struct {
	MasterInvoiceID uint                `json:"master_invoice_id"`
	Items           []ChildItemResponse `json:"items"`
	Subtotal        string              `json:"subtotal"`
	Discount        string              `json:"discount"`
	AfterDiscount   string              `json:"after_discount"`
	CGSTRate        string              `json:"cgst_rate"`
	SGSTRate        string              `json:"sgst_rate"`
	IGSTRate        string              `json:"igst_rate"`
	CGST            string              `json:"cgst"`
	SGST            string              `json:"sgst"`
	IGST            string              `json:"igst"`
	ShippingCharges string              `json:"shipping_charges"`
	Total           string              `json:"total"`
}

type BalanceResponse struct {
	ItemID      uint   `json:"item_id"`
	Description string `json:"description"`
	Total       string `json:"total_quantity"`
	Fulfilled   string `json:"fulfilled_quantity"`
	Remaining   string `json:"remaining_quantity"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(proration.MoneyPlaces)
}

func toInvoiceResponse(inv *models.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                   inv.ID,
		InvoiceNumber:        inv.InvoiceNumber,
		MasterInvoiceID:      inv.MasterInvoiceID,
		IsMaster:             inv.IsMaster,
		Status:               inv.Status,
		ClientName:           inv.ClientName,
		SourceType:           inv.SourceType,
		SourceRef:            inv.SourceRef,
		IssueDate:            inv.IssueDate.Format(dateLayout),
		Subtotal:             money(inv.Subtotal),
		Discount:             money(inv.Discount),
		CGST:                 money(inv.CGST),
		SGST:                 money(inv.SGST),
		IGST:                 money(inv.IGST),
		ShippingCharges:      money(inv.ShippingCharges),
		Total:                money(inv.Total),
		PaidAmount:           money(inv.PaidAmount),
		RemainingAmount:      money(inv.RemainingAmount),
		MilestoneDescription: inv.MilestoneDescription,
		DeliveryNotes:        inv.DeliveryNotes,
		Notes:                inv.Notes,
	}
	if inv.DueDate != nil {
		due := inv.DueDate.Format(dateLayout)
		resp.DueDate = &due
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:                it.ID,
			Description:       it.Description,
			ProductID:         it.ProductID,
			TotalQuantity:     it.TotalQuantity.String(),
			FulfilledQuantity: it.FulfilledQuantity.String(),
			RemainingQuantity: ledger.Remaining(it).String(),
			UnitPrice:         money(it.UnitPrice),
		})
	}
	for _, ci := range inv.ChildItems {
		resp.ChildItems = append(resp.ChildItems, ChildItemResponse{
			ID:           ci.ID,
			MasterItemID: ci.MasterItemID,
			Description:  ci.Description,
			Quantity:     ci.Quantity.String(),
			UnitPrice:    money(ci.UnitPrice),
			Amount:       money(ci.Amount),
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, PaymentLineResponse{
			ID:          p.ID,
			Amount:      money(p.Amount),
			Method:      string(p.Method),
			PaymentDate: p.PaymentDate.Format(dateLayout),
			Reference:   p.Reference,
		})
	}
	return resp
}

func toPreviewResponse(p *Preview) PreviewResponse {
	r := p.Rounded
	resp := PreviewResponse{
		MasterInvoiceID: p.MasterInvoiceID,
		Items:           make([]ChildItemResponse, 0, len(r.Lines)),
		Subtotal:        money(r.Subtotal),
		Discount:        money(r.Discount),
		AfterDiscount:   money(r.AfterDiscount),
		// rates are shown with more precision than money; they are not stored
		CGSTRate:        p.Breakdown.Rates.CGST.Round(4).String(),
		SGSTRate:        p.Breakdown.Rates.SGST.Round(4).String(),
		IGSTRate:        p.Breakdown.Rates.IGST.Round(4).String(),
		CGST:            money(r.CGST),
		SGST:            money(r.SGST),
		IGST:            money(r.IGST),
		ShippingCharges: money(r.ShippingCharges),
		Total:           money(r.Total),
	}
	for _, l := range r.Lines {
		resp.Items = append(resp.Items, ChildItemResponse{
			MasterItemID: l.ItemID,
			Description:  p.Descriptions[l.ItemID],
			Quantity:     l.Quantity.String(),
			UnitPrice:    money(l.UnitPrice),
			Amount:       money(l.Amount),
		})
	}
	return resp
}

func toBalanceResponses(balances []ledger.Balance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, BalanceResponse{
			ItemID:      b.ItemID,
			Description: b.Description,
			Total:       b.Total.String(),
			Fulfilled:   b.Fulfilled.String(),
			Remaining:   b.Remaining.String(),
		})
	}
	return out
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.Invalid(field, "tarih formatı YYYY-MM-DD olmalı")
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	t, err := parseDate(field, s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func (r CreateMasterRequest) toInput() (CreateMasterInput, error) {
	issue, err := parseDate("issue_date", r.IssueDate)
	if err != nil {
		return CreateMasterInput{}, err
	}
	due, err := parseOptionalDate("due_date", r.DueDate)
	if err != nil {
		return CreateMasterInput{}, err
	}
	if r.SourceType != "" &&
		r.SourceType != models.InvoiceSourceQuote &&
		r.SourceType != models.InvoiceSourceSalesOrder &&
		r.SourceType != models.InvoiceSourceManual {
		return CreateMasterInput{}, apperror.Invalid("source_type", "geçersiz kaynak tipi")
	}

	in := CreateMasterInput{
		ClientName:      r.ClientName,
		SourceType:      r.SourceType,
		SourceRef:       r.SourceRef,
		IssueDate:       issue,
		DueDate:         due,
		Discount:        r.Discount,
		Rates:           proration.Rates{CGST: r.CGSTRate, SGST: r.SGSTRate, IGST: r.IGSTRate},
		ShippingCharges: r.ShippingCharges,
		Notes:           r.Notes,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, ItemInput{
			Description: it.Description,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return in, nil
}

func toSelection(items []SelectionRequest) []SelectionLine {
	out := make([]SelectionLine, len(items))
	for i, it := range items {
		out[i] = SelectionLine{ItemID: it.ItemID, Quantity: it.Quantity}
	}
	return out
}

func (r CreateChildRequest) toInput() (CreateChildInput, error) {
	issue, err := parseDate("issue_date", r.IssueDate)
	if err != nil {
		return CreateChildInput{}, err
	}
	due, err := parseOptionalDate("due_date", r.DueDate)
	if err != nil {
		return CreateChildInput{}, err
	}
	return CreateChildInput{
		Selection: toSelection(r.Items),
		Metadata: ChildMetadata{
			MilestoneDescription: r.MilestoneDescription,
			DeliveryNotes:        r.DeliveryNotes,
			Notes:                r.Notes,
			IssueDate:            issue,
			DueDate:              due,
		},
	}, nil
}
