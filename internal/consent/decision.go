package consent

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDecision is returned when a decision value cannot be recorded or parsed.
var ErrInvalidDecision = errors.New("invalid decision")

// Decision is a user's response to the terms prompt.
type Decision int

const (
	// DecisionUnset is the implicit value for any user that never answered.
	DecisionUnset Decision = iota
	// DecisionAccepted means the user accepted the terms.
	DecisionAccepted
	// DecisionRejected means the user rejected the terms.
	DecisionRejected
)

// String returns the lowercase name of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionUnset:
		return "unset"
	case DecisionAccepted:
		return "accepted"
	case DecisionRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Action returns the label written to the decision log.
func (d Decision) Action() string {
	switch d {
	case DecisionAccepted:
		return "AGREE"
	case DecisionRejected:
		return "REJECT"
	case DecisionUnset:
		return ""
	default:
		return ""
	}
}

// IsFinal reports whether the decision is one a user can record.
func (d Decision) IsFinal() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// ParseDecision converts a decision name back into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return DecisionUnset, nil
	case "accepted", "accept", "agree":
		return DecisionAccepted, nil
	case "rejected", "reject":
		return DecisionRejected, nil
	}

	return DecisionUnset, fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}
