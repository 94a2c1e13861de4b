package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Timestamp is an RFC 3339 instant that encodes back to the exact text it
// was parsed from. Values built with NewTimestamp encode as RFC3339Nano.
type Timestamp struct {
	time.Time
	text string
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp accepts RFC 3339 with optional fractional seconds and any
// UTC offset.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Time: t, text: s}, nil
}

func (t Timestamp) String() string {
	if t.text != "" {
		return t.text
	}
	return t.Time.Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	return t.UnmarshalText([]byte(s))
}
