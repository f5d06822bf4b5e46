package models

import "time"

// DocumentSequence: belge tipi + yıl bazında son verilen numara
type DocumentSequence struct {
	ID           uint   `gorm:"primaryKey"`
	DocumentType string `gorm:"size:20;not null;uniqueIndex:ux_document_sequences_type_year,priority:1"`
	Year         int    `gorm:"not null;uniqueIndex:ux_document_sequences_type_year,priority:2"`
	LastValue    int64  `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
