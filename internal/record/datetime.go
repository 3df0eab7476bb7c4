package record

import (
	"strings"
	"time"
)

// dateTimeLayouts are the forms delivery times arrive in: HTML
// datetime-local values, RFC 3339 timestamps written back by the sheet,
// and plain dates.
var dateTimeLayouts = []string{
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses a date-time field value. Values without a zone
// are interpreted in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
