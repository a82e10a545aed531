package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/convocation/internal/store"
)

func TestDashboard(t *testing.T) {
	env := setupEnv(t)
	countdown := NewCountdownHandler(env.settings, fixedClock, env.hub, env.logger)
	h := NewDashboardHandler(env.dates, env.news, env.feedback, env.students, countdown, fixedClock, env.logger)

	env.dates.Create("Done", "2026-01-05", "", "")
	env.dates.Create("Clearance", "2026-03-11", "", "Bursary")
	env.dates.Create("Rehearsal", "2026-04-01", "", "")
	env.news.Create("Hello", "", "", "")
	env.feedback.Create("Ada", "ada@example.com", "When is the ceremony?")
	fb, _ := env.feedback.Create("Bola", "bola@example.com", "Thanks")
	env.feedback.Reply(fb.ID, "You're welcome")
	env.students.Create("Ada", "ENG/1", "Engineering")
	env.settings.Set(store.KeyCountdownTarget, "2026-03-20")

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	got := decodeBody[dashboardResponse](t, rec)
	if len(got.Deadlines) != 2 || got.Deadlines[0].Title != "Clearance" {
		t.Errorf("deadlines = %+v", got.Deadlines)
	}
	want := dashboardCounts{Deadlines: 3, Urgent: 1, News: 1, PendingFeedback: 1, Students: 1}
	if got.Counts != want {
		t.Errorf("counts = %+v, want %+v", got.Counts, want)
	}
	if got.Countdown.DaysRemaining == nil || *got.Countdown.DaysRemaining != 10 {
		t.Errorf("countdown = %+v", got.Countdown)
	}
}
