package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUTCTimeUnmarshal(t *testing.T) {
	want := time.Date(2024, 3, 1, 8, 30, 0, 500000000, time.UTC)
	tests := []struct {
		name string
		in   string
	}{
		{"rfc3339 utc", `"2024-03-01T08:30:00.5Z"`},
		{"rfc3339 offset", `"2024-03-01T10:30:00.5+02:00"`},
		{"naive iso", `"2024-03-01T08:30:00.500000"`},
		{"naive space", `"2024-03-01 08:30:00.5"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts UTCTime
			if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ts.Equal(want) || ts.Location() != time.UTC {
				t.Errorf("got %v, want %v in UTC", ts.Time, want)
			}
		})
	}
}

func TestUTCTimeRejectsGarbage(t *testing.T) {
	var ts UTCTime
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for non-timestamp string")
	}
	if err := json.Unmarshal([]byte(`12345`), &ts); err == nil {
		t.Error("expected error for numeric timestamp")
	}
}
