package decisionlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robalyx/termsgate/internal/consent"
)

// ErrNoTarget is returned when an entry has no log target for its decision.
var ErrNoTarget = errors.New("no log target for decision")

// Writer appends decision entries to an audit target.
type Writer interface {
	Append(ctx context.Context, entry Entry) error
}

// FileLog appends entries to one text file per decision kind.
type FileLog struct {
	dir     string
	targets map[consent.Decision]string
	mu      sync.Mutex
}

// NewFileLog creates a file log writing accepted and rejected entries to the
// given file names inside dir. Files and the directory are created on first use.
func NewFileLog(dir, acceptFile, rejectFile string) *FileLog {
	return &FileLog{
		dir: dir,
		targets: map[consent.Decision]string{
			consent.DecisionAccepted: acceptFile,
			consent.DecisionRejected: rejectFile,
		},
	}
}

// Path returns the file an entry with the given decision is written to.
func (l *FileLog) Path(decision consent.Decision) string {
	name, ok := l.targets[decision]
	if !ok || name == "" {
		return ""
	}

	return filepath.Join(l.dir, name)
}

// Append writes the formatted entry with a single write so concurrent
// appends never interleave partial lines.
func (l *FileLog) Append(_ context.Context, entry Entry) error {
	path := l.Path(entry.Decision)
	if path == "" {
		return fmt.Errorf("%w: %s", ErrNoTarget, entry.Decision)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open decision log %s: %w", path, err)
	}

	if _, err := file.WriteString(entry.Format()); err != nil {
		file.Close()
		return fmt.Errorf("failed to write decision log %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close decision log %s: %w", path, err)
	}

	return nil
}
