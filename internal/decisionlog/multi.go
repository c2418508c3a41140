package decisionlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/database/types"
)

// Multi writes every entry to a primary writer and then to each mirror.
// Mirrors are attempted even when the primary fails.
type Multi struct {
	primary Writer
	mirrors []Writer
}

// NewMulti combines the primary writer with optional mirrors.
func NewMulti(primary Writer, mirrors ...Writer) *Multi {
	return &Multi{primary: primary, mirrors: mirrors}
}

// Append writes to all targets and joins their errors.
func (m *Multi) Append(ctx context.Context, entry Entry) error {
	var errs []error

	if err := m.primary.Append(ctx, entry); err != nil {
		errs = append(errs, err)
	}

	for _, mirror := range m.mirrors {
		if err := mirror.Append(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RecordSaver persists consent records.
type RecordSaver interface {
	SaveRecord(ctx context.Context, record *types.ConsentRecord) error
}

// Mirror copies entries into the consent_records table.
type Mirror struct {
	saver RecordSaver
}

// NewMirror creates a database mirror for the decision log.
func NewMirror(saver RecordSaver) *Mirror {
	return &Mirror{saver: saver}
}

// Append inserts the entry as a consent record.
func (m *Mirror) Append(ctx context.Context, entry Entry) error {
	return m.saver.SaveRecord(ctx, RecordFromEntry(entry))
}

// RecordFromEntry maps an entry onto its audit row.
func RecordFromEntry(entry Entry) *types.ConsentRecord {
	return &types.ConsentRecord{
		UserID:       entry.Identity.ID,
		Username:     entry.Identity.Username,
		FullName:     entry.Identity.FullName,
		Action:       entry.Decision.Action(),
		TermsVersion: entry.TermsVersion,
		DecidedAt:    entry.At,
	}
}

// EntryFromRecord maps an audit row back onto an entry.
func EntryFromRecord(record *types.ConsentRecord) (Entry, error) {
	decision, err := consent.ParseDecision(record.Action)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Identity: consent.Identity{
			ID:       record.UserID,
			Username: record.Username,
			FullName: record.FullName,
		},
		Decision:     decision,
		At:           record.DecidedAt,
		TermsVersion: record.TermsVersion,
	}, nil
}
