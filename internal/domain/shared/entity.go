package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format of every persisted timestamp:
// ISO-8601, UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Clock returns the current time. Entities and repositories take a Clock so
// tests can pin time.
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// NewID returns a new opaque, globally unique entity identifier
func NewID() string {
	return uuid.New().String()
}

// Timestamp formats t as an ISO-8601 UTC string with milliseconds
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp produced by Timestamp. Plain dates and
// RFC 3339 strings are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewValidationError("INVALID_TIMESTAMP", "", "invalid date: "+s)
}

// Actor is the authenticated caller. Every read and write is scoped to the
// actor's store.
type Actor struct {
	StoreID  string `json:"storeId"`
	Username string `json:"username"`
}

// Validate checks that the actor can scope storage access
func (a Actor) Validate() error {
	if strings.TrimSpace(a.StoreID) == "" {
		return ErrUnauthorized
	}
	return nil
}
