// Package events records domain events in the outbox table inside the business
// transaction and relays them to in-process subscribers afterwards.
package events

// Domain event types.
const (
	EventMasterInvoiceCreated = "master_invoice_created"
	EventChildInvoiceCreated  = "child_invoice_created"
	EventChildInvoiceVoided   = "child_invoice_voided"
	EventPaymentApplied       = "payment_applied"
)

// ItemQuantity is one master item and the quantity moved by the event.
type ItemQuantity struct {
	MasterItemID uint   `json:"master_item_id"`
	Quantity     string `json:"quantity"`
}

type MasterInvoiceCreatedPayload struct {
	InvoiceID     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Total         string `json:"total"`
	ItemCount     int    `json:"item_count"`
}

type ChildInvoiceCreatedPayload struct {
	ChildInvoiceID  uint           `json:"child_invoice_id"`
	MasterInvoiceID uint           `json:"master_invoice_id"`
	InvoiceNumber   string         `json:"invoice_number"`
	Total           string         `json:"total"`
	Items           []ItemQuantity `json:"items"`
}

type ChildInvoiceVoidedPayload struct {
	ChildInvoiceID  uint           `json:"child_invoice_id"`
	MasterInvoiceID uint           `json:"master_invoice_id"`
	Released        []ItemQuantity `json:"released"`
}

type PaymentAppliedPayload struct {
	PaymentID       uint   `json:"payment_id"`
	InvoiceID       uint   `json:"invoice_id"`
	Amount          string `json:"amount"`
	PaidAmount      string `json:"paid_amount"`
	RemainingAmount string `json:"remaining_amount"`
	Status          string `json:"status"`
}
