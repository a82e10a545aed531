package ics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/convocation/internal/database"
	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/store"
)

var lagos = time.FixedZone("WAT", 3600)

func calendar(events ...string) []byte {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Registry//Convocation//EN"}
	for _, e := range events {
		lines = append(lines, strings.Split(strings.TrimSpace(e), "\n")...)
	}
	lines = append(lines, "END:VCALENDAR")
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

const clearance = `BEGIN:VEVENT
UID:clearance@registry
DTSTAMP:20261001T000000Z
SUMMARY:Clearance
LOCATION:Bursary
DTSTART;VALUE=DATE:20261102
DTEND;VALUE=DATE:20261107
END:VEVENT`

const rehearsal = `BEGIN:VEVENT
UID:rehearsal@registry
DTSTAMP:20261001T000000Z
SUMMARY:Rehearsal
DTSTART:20261110T090000Z
DTEND:20261110T110000Z
RRULE:FREQ=DAILY;COUNT=3
EXDATE:20261111T090000Z
END:VEVENT`

const cancelled = `BEGIN:VEVENT
UID:old@registry
DTSTAMP:20261001T000000Z
SUMMARY:Old plan
STATUS:CANCELLED
DTSTART;VALUE=DATE:20261103
END:VEVENT`

const past = `BEGIN:VEVENT
UID:past@registry
DTSTAMP:20261001T000000Z
SUMMARY:Registration
DTSTART;VALUE=DATE:20261001
END:VEVENT`

func TestParse(t *testing.T) {
	events, skipped, err := Parse(calendar(clearance, rehearsal, cancelled), lagos)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 cancelled", skipped)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	c := events[0]
	if !c.AllDay || c.Summary != "Clearance" || c.Location != "Bursary" {
		t.Errorf("clearance = %+v", c)
	}
	if c.Start.Format(isoDate) != "2026-11-02" || c.End.Format(isoDate) != "2026-11-07" {
		t.Errorf("clearance window = %v - %v", c.Start, c.End)
	}

	r := events[1]
	if r.AllDay || r.RRule != "FREQ=DAILY;COUNT=3" || len(r.ExDates) != 1 {
		t.Errorf("rehearsal = %+v", r)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, _, err := Parse(nil, lagos); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpand(t *testing.T) {
	events, _, err := Parse(calendar(clearance, rehearsal, past), lagos)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	from := time.Date(2026, 11, 1, 0, 0, 0, 0, lagos)
	entries, errs := Expand(events, Window{From: from, To: from.AddDate(0, 2, 0)}, lagos)
	if len(errs) != 0 {
		t.Fatalf("expand errors: %v", errs)
	}

	want := map[string]deadline.Entry{
		"2026-11-02": {Title: "Clearance", Date: "2026-11-02", Time: "2026-11-06", Location: "Bursary"},
		"2026-11-10": {Title: "Rehearsal", Date: "2026-11-10"},
		"2026-11-12": {Title: "Rehearsal", Date: "2026-11-12"},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for _, e := range entries {
		if w, ok := want[e.Date]; !ok || w != e {
			t.Errorf("unexpected entry %+v", e)
		}
	}
}

func TestExpandBadRule(t *testing.T) {
	ev := Event{Summary: "Broken", Start: time.Now(), End: time.Now(), RRule: "FREQ=SOMETIMES"}
	entries, errs := Expand([]Event{ev}, Window{From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour)}, lagos)
	if len(entries) != 0 || len(errs) != 1 {
		t.Errorf("entries %v errs %v", entries, errs)
	}
}

func TestOverlapsExclusiveEnd(t *testing.T) {
	from := time.Date(2026, 11, 1, 0, 0, 0, 0, lagos)
	w := Window{From: from, To: from.AddDate(0, 0, 30)}

	yesterday := from.AddDate(0, 0, -1)
	if overlaps(yesterday, from, w) {
		t.Error("all-day event ending at window start should not overlap")
	}
	if !overlaps(from, from, w) {
		t.Error("instant at window start should overlap")
	}
	if overlaps(w.To.Add(time.Second), w.To.Add(time.Hour), w) {
		t.Error("event after window should not overlap")
	}
}

func newTestImporter(t *testing.T) (*Importer, *store.DeadlineStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dates := store.NewDeadlineStore(db)
	im := NewImporter(dates, 365, lagos, slog.New(slog.NewTextHandler(io.Discard, nil)))
	im.now = func() time.Time { return time.Date(2026, 11, 1, 10, 0, 0, 0, lagos) }
	return im, dates
}

func TestImportSkipsExisting(t *testing.T) {
	im, dates := newTestImporter(t)
	dates.Create("Rehearsal", "2026-11-10", "", "Main Hall")

	res, err := im.Import(context.Background(), calendar(clearance, rehearsal, past, cancelled))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Created) != 2 {
		t.Errorf("created = %+v", res.Created)
	}
	// cancelled + existing rehearsal
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}

	again, err := im.Import(context.Background(), calendar(clearance, rehearsal))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if len(again.Created) != 0 || again.Skipped != 3 {
		t.Errorf("second import created %d skipped %d", len(again.Created), again.Skipped)
	}

	stored, _ := dates.List()
	if len(stored) != 3 {
		t.Errorf("stored %d, want 3", len(stored))
	}
}

func TestImportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/registry.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		w.Write(calendar(clearance))
	}))
	defer srv.Close()

	im, _ := newTestImporter(t)
	res, err := im.ImportURL(context.Background(), srv.URL+"/registry.ics")
	if err != nil {
		t.Fatalf("import url: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0].Title != "Clearance" {
		t.Errorf("created = %+v", res.Created)
	}

	if _, err := im.ImportURL(context.Background(), srv.URL+"/missing.ics"); !errors.Is(err, ErrFetch) {
		t.Errorf("missing feed err = %v, want ErrFetch", err)
	}
	if _, err := im.ImportURL(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrFetch) {
		t.Errorf("file url err = %v, want ErrFetch", err)
	}
}
