package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

type CountdownHandler struct {
	settings *store.SettingsStore
	now      Clock
	hub      websocket.Broadcaster
	logger   *slog.Logger
}

func NewCountdownHandler(ss *store.SettingsStore, now Clock, hub websocket.Broadcaster, logger *slog.Logger) *CountdownHandler {
	return &CountdownHandler{settings: ss, now: now, hub: hub, logger: logger}
}

// Countdown is the convocation day countdown. DaysRemaining is nil when no
// target is set.
type Countdown struct {
	TargetDate    string `json:"target_date"`
	DaysRemaining *int   `json:"days_remaining"`
}

func (h *CountdownHandler) load() (Countdown, error) {
	target, err := h.settings.Get(store.KeyCountdownTarget)
	if err != nil {
		return Countdown{}, err
	}
	c := Countdown{TargetDate: target}
	if days, ok := deadline.DaysUntil(target, h.now()); ok {
		c.DaysRemaining = &days
	}
	return c, nil
}

// Get handles GET /api/countdown
func (h *CountdownHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.load()
	if err != nil {
		h.logger.Error("get countdown", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get countdown")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/countdown
func (h *CountdownHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetDate string `json:"target_date"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	t, ok := deadline.ParseDate(strings.TrimSpace(req.TargetDate), h.now().Location())
	if !ok {
		writeError(w, http.StatusBadRequest, "target_date is not a recognized date")
		return
	}

	if err := h.settings.Set(store.KeyCountdownTarget, t.Format("2006-01-02")); err != nil {
		h.logger.Error("set countdown", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save countdown")
		return
	}

	c, err := h.load()
	if err != nil {
		h.logger.Error("get countdown", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get countdown")
		return
	}

	broadcast(h.hub, websocket.EntityCountdown, websocket.ActionUpdated, 0, nil)
	writeJSON(w, http.StatusOK, c)
}
