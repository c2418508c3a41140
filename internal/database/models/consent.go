package models

import (
	"context"
	"fmt"

	"github.com/robalyx/termsgate/internal/database/dbretry"
	"github.com/robalyx/termsgate/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ConsentModel handles database operations for consent audit records.
type ConsentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewConsent creates a new consent model.
func NewConsent(db *bun.DB, logger *zap.Logger) *ConsentModel {
	return &ConsentModel{
		db:     db,
		logger: logger.Named("db_consent"),
	}
}

// SaveRecord inserts one decision into the audit table.
func (m *ConsentModel) SaveRecord(ctx context.Context, record *types.ConsentRecord) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(record).
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save consent record: %w", err)
		}

		m.logger.Debug("Saved consent record",
			zap.Int64("userID", record.UserID),
			zap.String("action", record.Action))

		return nil
	})
}

// ListByUser returns a user's records, newest first.
func (m *ConsentModel) ListByUser(ctx context.Context, userID int64, limit int) ([]*types.ConsentRecord, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ConsentRecord, error) {
		var records []*types.ConsentRecord

		err := m.db.NewSelect().
			Model(&records).
			Where("user_id = ?", userID).
			Order("decided_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list consent records: %w", err)
		}

		if len(records) == 0 {
			return nil, types.ErrNoConsentRecords
		}

		return records, nil
	})
}
