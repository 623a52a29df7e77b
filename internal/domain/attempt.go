package domain

import "time"

// ValidationAttempt records one password validation event. The password
// itself is never stored; Fingerprint is a keyed hash of it.
type ValidationAttempt struct {
	ID          int64
	RequestID   string
	ClientIP    string
	Fingerprint string
	Length      int
	Score       int
	Valid       bool
	Failures    []string
	CreatedAt   time.Time
}

// AttemptFilter selects validation attempts. Zero-valued fields are ignored.
// Results are ordered by ID.
type AttemptFilter struct {
	Valid       *bool
	ClientIP    string
	Fingerprint string
	RequestID   string
	Since       time.Time
	Limit       int
	Offset      int
}
