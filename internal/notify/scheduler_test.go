package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/model"
)

func newTestScheduler(t *testing.T, f *fixture, now time.Time) *Scheduler {
	t.Helper()
	s, err := NewScheduler("0 8 * * *", f.svc, f.dates, f.notifications, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	f := setup(t)
	if _, err := NewScheduler("whenever", f.svc, f.dates, f.notifications, nil, slog.Default()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRunOnceSendsUrgentOnly(t *testing.T) {
	f := setup(t)
	now := time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)

	f.dates.Create("Clearance", "2026-11-04", "", "Bursary")
	f.dates.Create("Rehearsal", "2026-10-30", "- 2026-11-03", "")
	f.dates.Create("Convocation", "2026-11-20", "", "Main Hall")
	f.dates.Create("Registration", "2026-10-01", "", "")

	s := newTestScheduler(t, f, now)
	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	f.svc.Wait()
	if n == nil {
		t.Fatal("expected a reminder")
	}
	if n.Type != model.NotifTypeDeadlineReminder || n.Title != "2 deadlines need attention" {
		t.Errorf("notification = %+v", n)
	}
	// Ongoing range sorts before the later start.
	lines := strings.Split(n.Body, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Rehearsal (30 Oct 2026 - 3 Nov 2026, N/A)") ||
		!strings.HasPrefix(lines[1], "Clearance (4 Nov 2026, Bursary)") {
		t.Errorf("body = %q", n.Body)
	}
	if n.Metadata["date"] != "2026-11-02" {
		t.Errorf("metadata = %v", n.Metadata)
	}

	// Same day: nothing more.
	again, err := s.RunOnce(context.Background())
	if err != nil || again != nil {
		t.Errorf("second run = %+v, %v; want nothing", again, err)
	}

	// Next day sends again.
	s.now = func() time.Time { return now.AddDate(0, 0, 1) }
	next, err := s.RunOnce(context.Background())
	f.svc.Wait()
	if err != nil || next == nil {
		t.Errorf("next day run = %+v, %v", next, err)
	}
}

func TestRunOnceNothingUrgent(t *testing.T) {
	f := setup(t)
	f.dates.Create("Convocation", "2026-12-20", "", "")

	s := newTestScheduler(t, f, time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC))
	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != nil {
		t.Errorf("unexpected reminder %+v", n)
	}
	sent, _ := f.notifications.WasSent(model.NotifTypeDeadlineReminder, "2026-11-02")
	if sent {
		t.Error("empty day should not be recorded as sent")
	}
}

func TestRunOnceCollapsesDuplicates(t *testing.T) {
	f := setup(t)
	for i := 0; i < 7; i++ {
		f.dates.Create("Task", "2026-11-03", "", "")
	}
	// Exact duplicates collapse, so vary the location.
	f.dates.Create("Task", "2026-11-03", "", "Hall A")

	s := newTestScheduler(t, f, time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC))
	n, err := s.RunOnce(context.Background())
	f.svc.Wait()
	if err != nil || n == nil {
		t.Fatalf("run = %+v, %v", n, err)
	}
	if n.Title != "2 deadlines need attention" {
		t.Errorf("title = %q", n.Title)
	}
}

func TestReminderRequestTruncates(t *testing.T) {
	urgent := make([]deadline.Classified, 7)
	for i := range urgent {
		urgent[i] = deadline.Classified{
			Entry:       deadline.Entry{ID: int64(i + 1), Title: "Task"},
			Color:       deadline.ColorRed,
			Priority:    deadline.PriorityUrgent,
			DisplayDate: "3 Nov 2026",
		}
	}
	req := reminderRequest(urgent, "2026-11-02")
	lines := strings.Split(req.Body, "\n")
	if len(lines) != maxListedReminders+1 || lines[maxListedReminders] != "and 2 more" {
		t.Errorf("body = %q", req.Body)
	}
	if ids, ok := req.Metadata["deadline_ids"].([]int64); !ok || len(ids) != 7 {
		t.Errorf("deadline_ids = %v", req.Metadata["deadline_ids"])
	}
}

func TestStartStop(t *testing.T) {
	f := setup(t)
	s := newTestScheduler(t, f, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	s.Stop()
}
