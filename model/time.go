package model

import (
	"fmt"
	"strconv"
	"time"
)

// naive layouts are what agents without zone info send; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UTCTime is a wire timestamp. It accepts RFC 3339 and offset-less ISO 8601.
type UTCTime struct {
	time.Time
}

func (t *UTCTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	s, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = ts.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t UTCTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
