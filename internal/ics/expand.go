package ics

import (
	"fmt"
	"time"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 1000

const isoDate = "2006-01-02"

// Window is the inclusive range occurrences must overlap.
type Window struct {
	From time.Time
	To   time.Time
}

// Expand turns events into calendar entries, expanding recurrences inside w.
// Recurring events whose rule does not parse are reported and skipped.
func Expand(events []Event, w Window, loc *time.Location) ([]deadline.Entry, []error) {
	if loc == nil {
		loc = time.Local
	}
	var out []deadline.Entry
	var errs []error

	for _, ev := range events {
		if ev.RRule == "" {
			if overlaps(ev.Start, ev.End, w) {
				out = append(out, toEntry(ev, ev.Start, ev.End, loc))
			}
			continue
		}

		starts, err := occurrences(ev, w)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.Summary, err))
			continue
		}
		dur := ev.End.Sub(ev.Start)
		for _, s := range starts {
			if overlaps(s, s.Add(dur), w) {
				out = append(out, toEntry(ev, s, s.Add(dur), loc))
			}
		}
	}
	return out, errs
}

func occurrences(ev Event, w Window) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", ev.RRule, err)
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Include instances that started before the window but still run into it.
	from := w.From.Add(-ev.End.Sub(ev.Start)).In(ev.Start.Location())
	to := w.To.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}
	return starts, nil
}

// toEntry maps one occurrence. The end date is only recorded when the
// occurrence spans more than one calendar day; all-day ends are exclusive.
func toEntry(ev Event, start, end time.Time, loc *time.Location) deadline.Entry {
	var startDay, lastDay time.Time
	if ev.AllDay {
		// All-day values are calendar dates and must not shift across zones.
		startDay = start
		lastDay = end.AddDate(0, 0, -1)
	} else {
		startDay = start.In(loc)
		lastDay = end.In(loc)
	}

	e := deadline.Entry{
		Title:    ev.Summary,
		Date:     startDay.Format(isoDate),
		Location: ev.Location,
	}
	if last := lastDay.Format(isoDate); last > e.Date {
		e.Time = last
	}
	return e
}

// overlaps treats end as exclusive, except for zero-length events.
func overlaps(start, end time.Time, w Window) bool {
	if start.After(w.To) {
		return false
	}
	if end.Equal(start) {
		return !start.Before(w.From)
	}
	return end.After(w.From)
}
