package audience

import (
	"slices"
	"strings"

	"github.com/dukerupert/convocation/internal/model"
)

// AllFaculties targets every student regardless of faculty.
const AllFaculties = "All"

// Unassigned collects students with no faculty on record.
const Unassigned = "Unassigned"

// Counts is a student tally keyed by faculty name. Faculty names are
// compared without regard to case.
type Counts map[string]int

// Tally counts students per faculty, keyed by the first spelling seen.
func Tally(students []model.Student) Counts {
	c := make(Counts)
	display := make(map[string]string)
	for _, s := range students {
		f := strings.TrimSpace(s.Faculty)
		if f == "" {
			f = Unassigned
		}
		key := strings.ToLower(f)
		if name, ok := display[key]; ok {
			f = name
		} else {
			display[key] = f
		}
		c[f]++
	}
	return c
}

// Total returns the number of students across all faculties.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Size returns how many students a notification targeted at the given
// faculties would reach. No targets, or the All pseudo-faculty, reaches everyone.
func (c Counts) Size(targets []string) int {
	if len(targets) == 0 {
		return c.Total()
	}
	folded := make(map[string]int, len(c))
	for f, v := range c {
		folded[strings.ToLower(f)] += v
	}
	seen := make(map[string]bool, len(targets))
	n := 0
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if strings.EqualFold(t, AllFaculties) {
			return c.Total()
		}
		key := strings.ToLower(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		n += folded[key]
	}
	return n
}

// Faculties returns the faculty names in alphabetical order.
func (c Counts) Faculties() []string {
	names := make([]string, 0, len(c))
	for f := range c {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// Normalize trims targets, drops blanks and case-insensitive duplicates
// (keeping the first spelling), and collapses any list containing All to nil.
func Normalize(targets []string) []string {
	var out []string
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if strings.EqualFold(t, AllFaculties) {
			return nil
		}
		if t == "" || slices.ContainsFunc(out, func(o string) bool { return strings.EqualFold(o, t) }) {
			continue
		}
		out = append(out, t)
	}
	return out
}
