package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/convocation/internal/audience"
	"github.com/dukerupert/convocation/internal/notify"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

type NotificationHandler struct {
	store   *store.NotificationStore
	service *notify.Service
	hub     websocket.Broadcaster
	logger  *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, svc *notify.Service, hub websocket.Broadcaster, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: ns, service: svc, hub: hub, logger: logger}
}

// List handles GET /api/notifications?limit=N
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	items, err := h.store.List(limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// Create handles POST /api/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := h.service.Send(r.Context(), req)
	if err != nil {
		if errors.Is(err, notify.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("send notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send notification")
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get notification")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	broadcast(h.hub, websocket.EntityNotification, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Audience handles GET /api/notifications/audience?faculty=A&faculty=B.
// Faculties may also be given comma separated.
func (h *NotificationHandler) Audience(w http.ResponseWriter, r *http.Request) {
	var targets []string
	for _, v := range r.URL.Query()["faculty"] {
		targets = append(targets, strings.Split(v, ",")...)
	}
	targets = audience.Normalize(targets)

	counts, err := h.service.Audience()
	if err != nil {
		h.logger.Error("audience tally", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count audience")
		return
	}

	if targets == nil {
		targets = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_faculties": targets,
		"audience_size":    counts.Size(targets),
		"total":            counts.Total(),
		"by_faculty":       counts,
	})
}

// Faculties handles GET /api/faculties
func (h *NotificationHandler) Faculties(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Audience()
	if err != nil {
		h.logger.Error("audience tally", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list faculties")
		return
	}
	writeJSON(w, http.StatusOK, counts.Faculties())
}
