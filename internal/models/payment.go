package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodUPI          PaymentMethod = "upi"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheque, PaymentMethodUPI:
		return true
	}
	return false
}

// Payment - Faturaya yapılan ödeme. Ekleme sırası kronolojik sıradır.
type Payment struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Method      PaymentMethod   `gorm:"size:20;not null"`
	PaymentDate time.Time       `gorm:"index;not null"`
	Reference   string          `gorm:"size:100"`
	Notes       string          `gorm:"size:500"`
	CreatedByID *uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
