package deadline

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
)

type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// Priority orders classified entries: 1 is the most urgent.
type Priority int

const (
	PriorityUrgent   Priority = 1
	PriorityUpcoming Priority = 2
	PriorityPast     Priority = 3
)

// urgentWindowDays is the number of days ahead that still counts as urgent.
const urgentWindowDays = 7

const displayLayout = "2 Jan 2006"

// Entry is a calendar entry as stored by the admin console. Date is the start
// of the window; Time optionally carries the end of the window, either alone
// or as the second half of a "start - end" range.
type Entry struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// DisplayLocation returns the location, or "N/A" when none was given.
func (e Entry) DisplayLocation() string {
	if strings.TrimSpace(e.Location) == "" {
		return "N/A"
	}
	return e.Location
}

type Classified struct {
	Entry
	Color       Color    `json:"color"`
	Priority    Priority `json:"priority"`
	DisplayDate string   `json:"display_date"`
	start       time.Time
}

// Classify computes the status color and priority of e at now.
// Entries whose date cannot be parsed are treated as past.
func Classify(e Entry, now time.Time) (Color, Priority) {
	start, ok := ParseDate(e.Date, now.Location())
	if !ok {
		return ColorGreen, PriorityPast
	}
	start = startOfDay(start)

	if end, ok := ParseEnd(e.Time, now.Location()); ok {
		switch {
		case !now.Before(start) && !now.After(end):
			return ColorRed, PriorityUrgent
		case now.Before(start):
			if diffDays(start, now) <= urgentWindowDays {
				return ColorRed, PriorityUrgent
			}
			return ColorYellow, PriorityUpcoming
		default:
			return ColorGreen, PriorityPast
		}
	}

	days := diffDays(start, now)
	switch {
	case days < 0:
		return ColorGreen, PriorityPast
	case days <= urgentWindowDays:
		return ColorRed, PriorityUrgent
	default:
		return ColorYellow, PriorityUpcoming
	}
}

// SortKey returns the start-of-day of the entry's date. The end of a ranged
// entry never participates in ordering. Unparseable dates yield the zero time.
func SortKey(e Entry, now time.Time) time.Time {
	start, ok := ParseDate(e.Date, now.Location())
	if !ok {
		return time.Time{}
	}
	return startOfDay(start)
}

// Compare orders by priority, then by start date.
func Compare(a, b Classified) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	return a.start.Compare(b.start)
}

// FilterActionable classifies entries at now, drops past entries and exact
// duplicates, and returns the rest ordered by urgency then start date.
func FilterActionable(entries []Entry, now time.Time) []Classified {
	seen := make(map[Entry]struct{}, len(entries))
	out := make([]Classified, 0, len(entries))

	for _, e := range entries {
		key := e
		key.ID = 0
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		color, priority := Classify(e, now)
		if color == ColorGreen {
			continue
		}
		out = append(out, Classified{
			Entry:       e,
			Color:       color,
			Priority:    priority,
			DisplayDate: DisplayDate(e, now.Location()),
			start:       SortKey(e, now),
		})
	}

	slices.SortStableFunc(out, Compare)
	return out
}

// DisplayDate formats the start date as "2 Jan 2006", followed by
// " - 2 Jan 2006" when the entry has a parseable end.
func DisplayDate(e Entry, loc *time.Location) string {
	start, ok := ParseDate(e.Date, loc)
	if !ok {
		return e.Date
	}
	s := start.Format(displayLayout)
	if end, ok := ParseEnd(e.Time, loc); ok {
		s += " - " + end.Format(displayLayout)
	}
	return s
}

// DaysUntil returns the whole days from now until the start of date, rounded
// up and never negative. ok is false when date does not parse.
func DaysUntil(date string, now time.Time) (days int, ok bool) {
	t, ok := ParseDate(date, now.Location())
	if !ok {
		return 0, false
	}
	return max(diffDays(startOfDay(t), now), 0), true
}

// diffDays returns the number of days from now until t, rounded up.
func diffDays(t, now time.Time) int {
	return int(math.Ceil(float64(t.Sub(now)) / float64(24*time.Hour)))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
