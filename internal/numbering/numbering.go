// Package numbering hands out human-readable document numbers.
package numbering

import (
	"context"
	"fmt"
	"strings"

	"invoicing-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DocumentTypeInvoice = "invoice"

// Numberer returns the next number for a document type in a given year.
// Implementations must not hand out the same number twice.
type Numberer interface {
	NextNumber(ctx context.Context, documentType string, year int) (string, error)
}

// NumbererFunc adapts a plain function to Numberer.
type NumbererFunc func(ctx context.Context, documentType string, year int) (string, error)

func (f NumbererFunc) NextNumber(ctx context.Context, documentType string, year int) (string, error) {
	return f(ctx, documentType, year)
}

// SequenceNumberer keeps one counter row per (document type, year) in
// document_sequences. Each call commits on its own; a number that is handed
// out and then not used leaves a gap.
type SequenceNumberer struct {
	db     *gorm.DB
	prefix string
}

func NewSequenceNumberer(db *gorm.DB, prefix string) *SequenceNumberer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "INV"
	}
	return &SequenceNumberer{db: db, prefix: prefix}
}

func (s *SequenceNumberer) NextNumber(ctx context.Context, documentType string, year int) (string, error) {
	if documentType == "" {
		return "", fmt.Errorf("belge tipi boş olamaz")
	}

	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.DocumentSequence{DocumentType: documentType, Year: year, LastValue: 0}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var seq models.DocumentSequence
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_type = ? AND year = ?", documentType, year).
			First(&seq).Error; err != nil {
			return err
		}

		next = seq.LastValue + 1
		return tx.Model(&models.DocumentSequence{}).
			Where("id = ?", seq.ID).
			Update("last_value", next).Error
	})
	if err != nil {
		return "", fmt.Errorf("sıra numarası alınamadı: %w", err)
	}

	return fmt.Sprintf("%s-%d-%04d", s.prefix, year, next), nil
}
