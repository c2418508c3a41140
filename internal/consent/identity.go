package consent

import (
	"strconv"
	"strings"
)

// Identity describes the platform user behind an event.
type Identity struct {
	ID       int64
	Username string
	FullName string
}

// NewIdentity builds an Identity from raw platform fields.
// A missing username is replaced by a user_<id> placeholder and the full name
// is the trimmed join of first and last name.
func NewIdentity(id int64, username, firstName, lastName string) Identity {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		username = PlaceholderUsername(id)
	}

	return Identity{
		ID:       id,
		Username: username,
		FullName: strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)),
	}
}

// PlaceholderUsername returns the username used when the platform provides none.
func PlaceholderUsername(id int64) string {
	return "user_" + strconv.FormatInt(id, 10)
}
