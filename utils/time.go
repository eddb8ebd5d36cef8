package utils

import (
	"time"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/errors"
)

// Accepted trigger-time layouts, tried in order. Times without a zone are
// taken as UTC, matching how the bot reports the reference time.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseEventTime parses an ISO-8601-style trigger time.
func ParseEventTime(value string) (time.Time, error) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.NewInvalidTimeError(value)
}

// FormatDate formats a date only.
func FormatDate(date time.Time) string {
	return date.Format(constants.DateFormat)
}

// FormatDateTime formats a date with time.
func FormatDateTime(dateTime time.Time) string {
	return dateTime.Format(constants.DateTimeFormat)
}
