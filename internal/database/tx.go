package database

import (
	"context"
	"errors"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/logger"

	"gorm.io/gorm"
)

// InTx runs fn inside a transaction on db. A returned error rolls back; a
// failed rollback is logged and escalated as apperror.ErrConsistency since the
// store may then hold a partial write.
func InTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperror.Persistence(op+": begin", tx.Error)
	}

	panicked := true
	defer func() {
		if panicked {
			tx.Rollback()
		}
	}()

	if fnErr := fn(tx); fnErr != nil {
		panicked = false
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			log := logger.WithComponent("database")
			log.Error().
				Bool("consistency", true).
				Str("op", op).
				AnErr("cause", fnErr).
				Err(rbErr).
				Msg("Rollback başarısız, manuel müdahale gerekiyor")
			return errors.Join(apperror.ErrConsistency, fnErr, rbErr)
		}
		return fnErr
	}

	panicked = false
	if err := tx.Commit().Error; err != nil {
		return apperror.Persistence(op+": commit", err)
	}
	return nil
}
