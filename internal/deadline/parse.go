package deadline

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts without a zone are interpreted in
// the caller's location.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2 2006",
	"Monday, January 2, 2006",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

var rangeSeparators = []string{" - ", " – ", " to "}

// ParseDate parses s as a calendar date. Timestamps carrying a zone are
// converted to loc so the calendar day matches the caller's clock.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// ParseEnd extracts the end of an entry's window from its time field and
// normalizes it to the last millisecond of that day. The field holds either a
// single date or a "start - end" range; only the end half is used.
func ParseEnd(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	end := s
	switch {
	case strings.HasPrefix(s, "-"):
		end = s[1:]
	default:
		for _, sep := range rangeSeparators {
			if i := strings.Index(s, sep); i >= 0 {
				end = s[i+len(sep):]
				break
			}
		}
	}

	t, ok := ParseDate(end, loc)
	if !ok && end == s {
		// Compact ranges such as "3 Oct 2026-5 Oct 2026".
		if i := strings.Index(s, "-"); i >= 0 {
			t, ok = ParseDate(s[i+1:], loc)
		}
	}
	if !ok {
		return time.Time{}, false
	}
	return endOfDay(t), true
}
