package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// SessionIDLength is the length of an analysis session id
const SessionIDLength = 12

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// NewSessionID creates the short random id handed to clients after ingestion
func NewSessionID() ID {
	return ID(strings.ReplaceAll(uuid.NewString(), "-", "")[:SessionIDLength])
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return strings.TrimSpace(string(id)) == ""
}
