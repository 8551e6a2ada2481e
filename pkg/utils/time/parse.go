// ABOUTME: Lenient date parsing for advisory feed items gofeed could not parse
// ABOUTME: Covers RFC layouts plus the day-first dates used by regional agriculture bulletins

package time

import (
	"strings"
	"time"
)

// Layouts tried in order. Day-first numeric dates come before month-first
// ones since bulletins are published in that form.
var layouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseFeedTime parses a feed date. Dates without a zone are taken as loc;
// a nil loc means UTC.
func ParseFeedTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
