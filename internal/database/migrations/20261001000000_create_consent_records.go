package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/termsgate/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*types.ConsentRecord)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create consent_records: %w", err)
		}

		_, err = db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_consent_records_user_time
			ON consent_records (user_id, decided_at DESC);

			CREATE INDEX IF NOT EXISTS idx_consent_records_action_time
			ON consent_records (action, decided_at DESC);
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create consent_records indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*types.ConsentRecord)(nil)).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop consent_records: %w", err)
		}

		return nil
	})
}
