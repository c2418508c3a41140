package decisionlog

import (
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/termsgate/internal/consent"
)

const (
	// TimestampLayout is the layout used inside the bracketed log timestamp.
	TimestampLayout = "2006-01-02 15:04:05"

	// SeparatorWidth is the number of dashes written after each entry.
	SeparatorWidth = 120
)

// Separator is the line written after every entry.
var Separator = strings.Repeat("-", SeparatorWidth) + "\n" //nolint:gochecknoglobals // -

// Entry is one decision made by one user.
type Entry struct {
	Identity     consent.Identity
	Decision     consent.Decision
	At           time.Time
	TermsVersion string
}

// Format renders the entry as a record line followed by the separator line.
func (e Entry) Format() string {
	var b strings.Builder

	b.Grow(96 + SeparatorWidth)
	b.WriteString(e.Identity.Username)
	b.WriteString(">| ID: ")
	b.WriteString(strconv.FormatInt(e.Identity.ID, 10))
	b.WriteString(" | Name: ")
	b.WriteString(e.Identity.FullName)
	b.WriteString(" | [")
	b.WriteString(e.At.Format(TimestampLayout))
	b.WriteString("] | Action: ")
	b.WriteString(e.Decision.Action())
	b.WriteString("\n")
	b.WriteString(Separator)

	return b.String()
}
