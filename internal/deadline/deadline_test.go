package deadline

import (
	"reflect"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

// day returns the ISO date n days away from now.
func day(n int) string {
	return now.AddDate(0, 0, n).Format("2006-01-02")
}

func TestClassifySingleDate(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		color    Color
		priority Priority
	}{
		{"past", day(-10), ColorGreen, PriorityPast},
		{"yesterday", day(-1), ColorGreen, PriorityPast},
		{"today", day(0), ColorRed, PriorityUrgent},
		{"tomorrow", day(1), ColorRed, PriorityUrgent},
		{"seven days", day(7), ColorRed, PriorityUrgent},
		{"eight days", day(8), ColorYellow, PriorityUpcoming},
		{"far future", day(90), ColorYellow, PriorityUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color, priority := Classify(Entry{Title: "x", Date: tt.date}, now)
			if color != tt.color || priority != tt.priority {
				t.Errorf("Classify(%s) = %s/%d, want %s/%d", tt.date, color, priority, tt.color, tt.priority)
			}
		})
	}
}

func TestClassifyCeilingAtMidnight(t *testing.T) {
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	color, _ := Classify(Entry{Date: "2026-03-17"}, midnight)
	if color != ColorRed {
		t.Errorf("exactly 7 days at midnight: color = %s, want red", color)
	}
	color, _ = Classify(Entry{Date: "2026-03-18"}, midnight)
	if color != ColorYellow {
		t.Errorf("exactly 8 days at midnight: color = %s, want yellow", color)
	}

	// A second before midnight, the next day is still 1 day away.
	late := time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)
	if got := diffDays(startOfDay(midnight), late); got != 1 {
		t.Errorf("diffDays = %d, want 1", got)
	}
}

func TestClassifyRange(t *testing.T) {
	tests := []struct {
		name     string
		entry    Entry
		color    Color
		priority Priority
	}{
		{
			name:     "ongoing",
			entry:    Entry{Date: day(-2), Time: "- " + day(2)},
			color:    ColorRed,
			priority: PriorityUrgent,
		},
		{
			name:     "ongoing long running",
			entry:    Entry{Date: day(-60), Time: day(-60) + " - " + day(30)},
			color:    ColorRed,
			priority: PriorityUrgent,
		},
		{
			name:     "ends today",
			entry:    Entry{Date: day(-3), Time: day(0)},
			color:    ColorRed,
			priority: PriorityUrgent,
		},
		{
			name:     "starts within a week",
			entry:    Entry{Date: day(5), Time: "- " + day(9)},
			color:    ColorRed,
			priority: PriorityUrgent,
		},
		{
			name:     "starts later",
			entry:    Entry{Date: day(12), Time: "- " + day(14)},
			color:    ColorYellow,
			priority: PriorityUpcoming,
		},
		{
			name:     "finished",
			entry:    Entry{Date: day(-9), Time: "- " + day(-4)},
			color:    ColorGreen,
			priority: PriorityPast,
		},
		{
			name:     "unparseable end falls back to single date",
			entry:    Entry{Date: day(-3), Time: "9:00 AM"},
			color:    ColorGreen,
			priority: PriorityPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color, priority := Classify(tt.entry, now)
			if color != tt.color || priority != tt.priority {
				t.Errorf("Classify(%+v) = %s/%d, want %s/%d", tt.entry, color, priority, tt.color, tt.priority)
			}
		})
	}
}

func TestClassifyInvalidDate(t *testing.T) {
	for _, date := range []string{"not-a-date", "", "32/13/2026"} {
		color, priority := Classify(Entry{Title: "bad", Date: date}, now)
		if color != ColorGreen || priority != PriorityPast {
			t.Errorf("Classify(%q) = %s/%d, want green/3", date, color, priority)
		}
	}
}

func TestSortKeyIgnoresEnd(t *testing.T) {
	e := Entry{Date: day(3), Time: day(3) + " - " + day(20)}
	got := SortKey(e, now)
	want := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SortKey = %v, want %v", got, want)
	}

	if !SortKey(Entry{Date: "garbage"}, now).IsZero() {
		t.Error("SortKey of invalid date should be zero")
	}
}

func TestFilterActionableScenario(t *testing.T) {
	entries := []Entry{
		{Title: "A", Date: day(-10)},
		{Title: "B", Date: day(3)},
		{Title: "B", Date: day(3)},
		{Title: "C", Date: day(20)},
	}

	got := FilterActionable(entries, now)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(got), got)
	}
	if got[0].Title != "B" || got[0].Color != ColorRed || got[0].Priority != PriorityUrgent {
		t.Errorf("got[0] = %s %s/%d, want B red/1", got[0].Title, got[0].Color, got[0].Priority)
	}
	if got[1].Title != "C" || got[1].Color != ColorYellow || got[1].Priority != PriorityUpcoming {
		t.Errorf("got[1] = %s %s/%d, want C yellow/2", got[1].Title, got[1].Color, got[1].Priority)
	}
}

func TestFilterActionableOrdering(t *testing.T) {
	entries := []Entry{
		{Title: "far", Date: day(30)},
		{Title: "bad", Date: "not-a-date"},
		{Title: "soon", Date: day(6)},
		{Title: "ongoing", Date: day(-5), Time: "- " + day(1)},
		{Title: "next", Date: day(10)},
		{Title: "today", Date: day(0)},
		{Title: "done", Date: day(-1)},
	}

	got := FilterActionable(entries, now)

	var titles []string
	for i, c := range got {
		titles = append(titles, c.Title)
		if c.Color == ColorGreen {
			t.Errorf("green entry %q returned", c.Title)
		}
		if i > 0 && got[i-1].Priority > c.Priority {
			t.Errorf("priority out of order at %d: %d before %d", i, got[i-1].Priority, c.Priority)
		}
	}

	want := []string{"ongoing", "today", "soon", "next", "far"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("order = %v, want %v", titles, want)
	}
}

func TestFilterActionableIdempotent(t *testing.T) {
	entries := []Entry{
		{Title: "x", Date: day(4), Location: "Main Hall"},
		{Title: "y", Date: day(4)},
		{Title: "z", Date: day(15), Time: "- " + day(16)},
	}
	snapshot := append([]Entry(nil), entries...)

	first := FilterActionable(entries, now)
	second := FilterActionable(entries, now)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(entries, snapshot) {
		t.Error("input entries were mutated")
	}
	// Equal priority and date keep input order.
	if first[0].Title != "x" || first[1].Title != "y" {
		t.Errorf("stable order broken: %s, %s", first[0].Title, first[1].Title)
	}
}

func TestFilterActionableEmpty(t *testing.T) {
	got := FilterActionable(nil, now)
	if got == nil || len(got) != 0 {
		t.Errorf("FilterActionable(nil) = %v, want empty slice", got)
	}
}

func TestDisplayDate(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{Date: "2026-03-05"}, "5 Mar 2026"},
		{Entry{Date: "2026-03-05", Time: "- 2026-03-07"}, "5 Mar 2026 - 7 Mar 2026"},
		{Entry{Date: "2026-03-05", Time: "5 Mar 2026 - 9 Mar 2026"}, "5 Mar 2026 - 9 Mar 2026"},
		{Entry{Date: "2026-03-05", Time: "afternoon"}, "5 Mar 2026"},
		{Entry{Date: "whenever"}, "whenever"},
	}
	for _, tt := range tests {
		if got := DisplayDate(tt.entry, time.UTC); got != tt.want {
			t.Errorf("DisplayDate(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func TestDisplayLocation(t *testing.T) {
	if got := (Entry{}).DisplayLocation(); got != "N/A" {
		t.Errorf("DisplayLocation() = %q, want N/A", got)
	}
	if got := (Entry{Location: "Great Hall"}).DisplayLocation(); got != "Great Hall" {
		t.Errorf("DisplayLocation() = %q, want Great Hall", got)
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		date string
		want int
		ok   bool
	}{
		{day(0), 0, true},
		{day(1), 1, true},
		{day(30), 30, true},
		{day(-4), 0, true},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := DaysUntil(tt.date, now)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DaysUntil(%q) = %d, %v; want %d, %v", tt.date, got, ok, tt.want, tt.ok)
		}
	}
}
