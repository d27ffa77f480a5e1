package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a user has no active session
var ErrNotFound = errors.New("session not found")

// timestampLayout is how timestamps are stored as text
const timestampLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Session is the persisted platform session of one local user
type Session struct {
	UserID string
	// Bundle is the serialized cookie bundle, "name=value; name=value"
	Bundle    string
	Active    bool
	UpdatedAt time.Time
}

// timeNow is a variable for testability
var timeNow = func() time.Time {
	return time.Now().UTC()
}
