// Package dataset defines the canonical election-result row model and the
// date-set arithmetic the reconciliation layer is built on.
package dataset

import (
	"fmt"
	"time"
)

// ISO is the wire format for record dates
const ISO = "2006-01-02"

// Date identifies one discrete election/reporting event. It is the primary
// reconciliation key: two rows belong to the same event iff their dates are
// equal. The zero Date is invalid.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from calendar components
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO (YYYY-MM-DD) date string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISO, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// Today returns the current calendar date in UTC
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool { return d.t.IsZero() }

// Year returns the calendar year
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month
func (d Date) Month() time.Month { return d.t.Month() }

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(ISO)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports date equality
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare returns -1, 0, or 1 ordering d against other
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// MarshalJSON encodes the date as an ISO string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes an ISO date string
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date JSON: %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
