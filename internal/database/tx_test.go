package database_test

import (
	"context"
	"errors"
	"testing"

	"invoicing-backend/internal/database"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInTxCommits(t *testing.T) {
	db := testutil.NewDB(t)
	err := database.InTx(context.Background(), db, "seq", func(tx *gorm.DB) error {
		return tx.Create(&models.DocumentSequence{DocumentType: "invoice", Year: 2026, LastValue: 3}).Error
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.DocumentSequence{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	boom := errors.New("boom")
	err := database.InTx(context.Background(), db, "seq", func(tx *gorm.DB) error {
		if err := tx.Create(&models.DocumentSequence{DocumentType: "invoice", Year: 2026}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, db.Model(&models.DocumentSequence{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	db := testutil.NewDB(t)
	assert.Panics(t, func() {
		_ = database.InTx(context.Background(), db, "seq", func(tx *gorm.DB) error {
			tx.Create(&models.DocumentSequence{DocumentType: "invoice", Year: 2026})
			panic("boom")
		})
	})

	var n int64
	require.NoError(t, db.Model(&models.DocumentSequence{}).Count(&n).Error)
	assert.Zero(t, n)
}
