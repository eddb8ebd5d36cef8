package utils

import (
	"testing"
	"time"

	apperrors "github.com/Snaptraks/FateBot/errors"
)

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2026-09-15T20:00:00Z", time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)},
		{"rfc3339 with offset", "2026-09-15T22:00:00+02:00", time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)},
		{"no zone with seconds", "2026-09-15T20:00:00", time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)},
		{"no zone no seconds", "2026-09-15T20:00", time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)},
		{"space separator", "2026-09-15 20:00", time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)},
		{"date only", "2026-09-15", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEventTime(tt.input)
			if err != nil {
				t.Fatalf("ParseEventTime(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseEventTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseEventTime(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestParseEventTimeInvalid(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "15/09/2026", "2026-13-40T99:99"} {
		_, err := ParseEventTime(input)
		if !apperrors.IsType(err, apperrors.TypeInvalidTime) {
			t.Errorf("ParseEventTime(%q) error = %v, want invalid-time", input, err)
		}
	}
}

func TestFormatters(t *testing.T) {
	at := time.Date(2026, 9, 15, 20, 30, 45, 0, time.UTC)
	if got := FormatDate(at); got != "2026-09-15" {
		t.Errorf("FormatDate() = %q", got)
	}
	if got := FormatDateTime(at); got != "2026-09-15 20:30:45" {
		t.Errorf("FormatDateTime() = %q", got)
	}
}
