package domain

import (
	"encoding/base64"
	"strings"
	"time"
)

const (
	DefaultDonationPageSize = 50
	MaxDonationPageSize     = 200
)

// ClampLimit maps a requested page size onto [1, max], using def for
// non-positive values.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Cursor is the keyset position after the last donation of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor renders a cursor as an opaque string.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, NewValidationError("cursor", "malformed")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return Cursor{}, NewValidationError("cursor", "malformed")
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, NewValidationError("cursor", "malformed")
	}
	return Cursor{CreatedAt: at, ID: id}, nil
}

// After reports whether d sorts strictly after the cursor in newest-first order.
func (c Cursor) After(d Donation) bool {
	if d.CreatedAt.Equal(c.CreatedAt) {
		return d.ID < c.ID
	}
	return d.CreatedAt.Before(c.CreatedAt)
}
