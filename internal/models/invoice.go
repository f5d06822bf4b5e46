package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

type InvoiceSource string

const (
	InvoiceSourceQuote      InvoiceSource = "quote"
	InvoiceSourceSalesOrder InvoiceSource = "sales_order"
	InvoiceSourceManual     InvoiceSource = "manual"
)

// Invoice: master fatura (MasterInvoiceID nil) veya bir master'dan bölünmüş alt fatura.
// Finansal alanlar oran değil tutardır ve 2 haneye yuvarlanmış olarak saklanır.
type Invoice struct {
	ID              uint          `gorm:"primaryKey"`
	InvoiceNumber   string        `gorm:"size:50;uniqueIndex;not null"`
	MasterInvoiceID *uint         `gorm:"index"`
	IsMaster        bool          `gorm:"not null;default:false"`
	Status          InvoiceStatus `gorm:"size:20;not null;index"`
	ClientName      string        `gorm:"size:255"`
	SourceType      InvoiceSource `gorm:"size:20"`
	SourceRef       string        `gorm:"size:100"`
	IssueDate       time.Time     `gorm:"index;not null"`
	DueDate         *time.Time

	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CGST            decimal.Decimal `gorm:"column:cgst;type:decimal(20,4);not null"`
	SGST            decimal.Decimal `gorm:"column:sgst;type:decimal(20,4);not null"`
	IGST            decimal.Decimal `gorm:"column:igst;type:decimal(20,4);not null"`
	ShippingCharges decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(20,4);not null"`

	// Alt fatura metadata'sı
	MilestoneDescription string `gorm:"size:255"`
	DeliveryNotes        string `gorm:"size:500"`
	Notes                string `gorm:"size:1000"`

	CreatedByID *uint
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items      []InvoiceItem      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	ChildItems []ChildInvoiceItem `gorm:"foreignKey:ChildInvoiceID;constraint:OnDelete:CASCADE"`
	Payments   []Payment          `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceItem: master faturanın kalemi. TotalQuantity ve UnitPrice oluşturulduktan
// sonra değişmez, yalnızca FulfilledQuantity artar (void ile geri alınabilir).
type InvoiceItem struct {
	ID                uint            `gorm:"primaryKey"`
	InvoiceID         uint            `gorm:"index;not null"`
	Description       string          `gorm:"size:500;not null"`
	ProductID         *uint           `gorm:"index"`
	TotalQuantity     decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	FulfilledQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ChildInvoiceItem: alt faturanın master kalemden aldığı miktar
type ChildInvoiceItem struct {
	ID             uint            `gorm:"primaryKey"`
	ChildInvoiceID uint            `gorm:"index;not null"`
	MasterItemID   uint            `gorm:"index;not null"`
	Description    string          `gorm:"size:500"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt      time.Time
}
