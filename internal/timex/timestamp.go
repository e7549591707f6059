package timex

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

const DateLayout = "2006-01-02"

// layouts accepted by ParseTimestamp, most specific first. Layouts without a
// zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp parses timestamp text received from the API. Blank input is
// an absent value and yields the zero time. Input matching no layout yields
// an error wrapping common.ErrMalformedTimestamp; the current time is never
// substituted.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", common.ErrMalformedTimestamp, s)
}

// FormatTimestamp renders t as RFC3339 in UTC, or "" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatDate renders the calendar date of t, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
