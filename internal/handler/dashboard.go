package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
)

// DashboardHandler assembles the console's landing view.
type DashboardHandler struct {
	dates     *store.DeadlineStore
	news      *store.NewsStore
	feedback  *store.FeedbackStore
	students  *store.StudentStore
	countdown *CountdownHandler
	now       Clock
	logger    *slog.Logger
}

func NewDashboardHandler(ds *store.DeadlineStore, ns *store.NewsStore, fb *store.FeedbackStore, ss *store.StudentStore, countdown *CountdownHandler, now Clock, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dates:     ds,
		news:      ns,
		feedback:  fb,
		students:  ss,
		countdown: countdown,
		now:       now,
		logger:    logger,
	}
}

type dashboardCounts struct {
	Deadlines       int `json:"deadlines"`
	Urgent          int `json:"urgent"`
	News            int `json:"news"`
	PendingFeedback int `json:"pending_feedback"`
	Students        int `json:"students"`
}

type dashboardResponse struct {
	Deadlines []deadline.Classified `json:"deadlines"`
	Countdown Countdown             `json:"countdown"`
	Counts    dashboardCounts       `json:"counts"`
}

// Get handles GET /api/dashboard. Deadlines are classified against the
// clock at request time.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	dates, err := h.dates.List()
	if err != nil {
		h.logger.Error("dashboard deadlines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	news, err := h.news.List()
	if err != nil {
		h.logger.Error("dashboard news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	feedback, err := h.feedback.List()
	if err != nil {
		h.logger.Error("dashboard feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	students, err := h.students.List("")
	if err != nil {
		h.logger.Error("dashboard students", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	countdown, err := h.countdown.load()
	if err != nil {
		h.logger.Error("dashboard countdown", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	actionable := deadline.FilterActionable(model.Entries(dates), h.now())
	resp := dashboardResponse{
		Deadlines: actionable,
		Countdown: countdown,
		Counts: dashboardCounts{
			Deadlines: len(dates),
			News:      len(news),
			Students:  len(students),
		},
	}
	for _, c := range actionable {
		if c.Priority == deadline.PriorityUrgent {
			resp.Counts.Urgent++
		}
	}
	for _, f := range feedback {
		if f.Status == model.FeedbackNew {
			resp.Counts.PendingFeedback++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
