package models

import (
	"time"

	"gorm.io/datatypes"
)

// DomainEvent: outbox satırı. İş transaction'ı içinde yazılır, relay tarafından yayınlanır.
type DomainEvent struct {
	ID          string         `gorm:"primaryKey;size:36"`
	EventType   string         `gorm:"size:50;not null;index"`
	AggregateID uint           `gorm:"index;not null"`
	Payload     datatypes.JSON `gorm:"not null"`
	Published   bool           `gorm:"not null;default:false;index"`
	Attempts    int            `gorm:"not null;default:0"`
	LastError   string         `gorm:"size:500"`
	CreatedAt   time.Time      `gorm:"index;not null"`
	PublishedAt *time.Time
}
