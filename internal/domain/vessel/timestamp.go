package vessel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Timestamp is a UTC instant that also accepts zone-less ISO-8601 input.
// Upstream AIS feeders emit naive UTC timestamps (no offset), so those are
// read as UTC. Output is always RFC 3339 in UTC.
type Timestamp struct {
	time.Time
}

//nolint:gochecknoglobals // Read-only list of accepted layouts.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// NewTimestamp wraps t as a UTC Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// MarshalJSON encodes the instant as an RFC 3339 string, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO-8601 strings.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}

		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}

	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ParseTimestamp parses RFC 3339 or naive ISO-8601 (assumed UTC) text.
func ParseTimestamp(raw string) (Timestamp, error) {
	if raw == "" {
		return Timestamp{}, nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return NewTimestamp(parsed), nil
	}

	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return NewTimestamp(parsed), nil
		}
	}

	return Timestamp{}, fmt.Errorf("unsupported timestamp %q", raw)
}
