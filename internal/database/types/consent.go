package types

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ErrNoConsentRecords is returned when a user has no recorded decision.
var ErrNoConsentRecords = errors.New("no consent records found")

// ConsentRecord mirrors one decision log line into the audit table.
type ConsentRecord struct {
	bun.BaseModel `bun:"table:consent_records,alias:cr"`

	ID           int64     `bun:",pk,autoincrement"` // Unique numeric identifier
	UserID       int64     `bun:",notnull"`          // Platform user ID of the decider
	Username     string    `bun:",notnull"`          // Handle without the leading @
	FullName     string    `bun:",notnull"`          // Display name, may be empty
	Action       string    `bun:",notnull"`          // AGREE or REJECT
	TermsVersion string    `bun:",notnull"`          // Version of the terms that were shown
	DecidedAt    time.Time `bun:",notnull"`          // When the decision was recorded
}
