package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	labelLayout = "January 2006"
)

type (
	// Date is a calendar day. Only year, month and day are significant.
	Date struct {
		time.Time
	}

	// MonthKey identifies a calendar month in the zero-padded "YYYY-MM" form.
	// Lexicographic order of keys equals chronological order.
	MonthKey string
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the key of the month the date belongs to.
func (d Date) MonthKey() MonthKey {
	return MonthKeyOf(d.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthKeyOf returns the month key of t in t's own location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid month key %q: %w", s, err)
	}
	return MonthKeyOf(t), nil
}

// Before reports whether m is strictly earlier than other.
func (m MonthKey) Before(other MonthKey) bool {
	return m < other
}

// Label renders the key for display, e.g. "September 2025".
// Keys that do not parse are returned unchanged.
func (m MonthKey) Label() string {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return string(m)
	}
	return t.Format(labelLayout)
}

func (m MonthKey) String() string {
	return string(m)
}
