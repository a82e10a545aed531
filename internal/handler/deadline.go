package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/ics"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

type DeadlineHandler struct {
	store    *store.DeadlineStore
	importer *ics.Importer
	now      Clock
	hub      websocket.Broadcaster
	logger   *slog.Logger
}

func NewDeadlineHandler(ds *store.DeadlineStore, importer *ics.Importer, now Clock, hub websocket.Broadcaster, logger *slog.Logger) *DeadlineHandler {
	return &DeadlineHandler{store: ds, importer: importer, now: now, hub: hub, logger: logger}
}

type deadlineRequest struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

func (req *deadlineRequest) validate(h *DeadlineHandler) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" {
		return "title is required"
	}
	if _, ok := deadline.ParseDate(req.Date, h.now().Location()); !ok {
		return "date is not a recognized date"
	}
	return ""
}

// List handles GET /api/deadlines
func (h *DeadlineHandler) List(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.List()
	if err != nil {
		h.logger.Error("list deadlines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deadlines")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(dates))
}

// Actionable handles GET /api/deadlines/actionable
func (h *DeadlineHandler) Actionable(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.List()
	if err != nil {
		h.logger.Error("list deadlines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deadlines")
		return
	}
	writeJSON(w, http.StatusOK, deadline.FilterActionable(model.Entries(dates), h.now()))
}

// Create handles POST /api/deadlines
func (h *DeadlineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req deadlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(h); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	d, err := h.store.Create(req.Title, req.Date, req.Time, req.Location)
	if err != nil {
		h.logger.Error("create deadline", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create deadline")
		return
	}

	broadcast(h.hub, websocket.EntityDeadline, websocket.ActionCreated, d.ID, nil)
	writeJSON(w, http.StatusCreated, d)
}

// Update handles PUT /api/deadlines/{id}
func (h *DeadlineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get deadline", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get deadline")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "deadline not found")
		return
	}

	var req deadlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(h); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	d, err := h.store.Update(id, req.Title, req.Date, req.Time, req.Location)
	if err != nil {
		h.logger.Error("update deadline", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update deadline")
		return
	}

	broadcast(h.hub, websocket.EntityDeadline, websocket.ActionUpdated, d.ID, nil)
	writeJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /api/deadlines/{id}
func (h *DeadlineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get deadline", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get deadline")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "deadline not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete deadline", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete deadline")
		return
	}

	broadcast(h.hub, websocket.EntityDeadline, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/deadlines/import. The body is either
// {"url": "..."} or a text/calendar document.
func (h *DeadlineHandler) Import(w http.ResponseWriter, r *http.Request) {
	var (
		res *ics.Result
		err error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/calendar") {
		body, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, ics.MaxCalendarBytes))
		if readErr != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
			return
		}
		res, err = h.importer.Import(r.Context(), body)
	} else {
		var req struct {
			URL string `json:"url"`
		}
		if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		res, err = h.importer.ImportURL(r.Context(), strings.TrimSpace(req.URL))
	}

	if err != nil {
		if errors.Is(err, ics.ErrFetch) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if res != nil {
			h.logger.Error("import calendar", "error", err, "created", len(res.Created))
			writeError(w, http.StatusInternalServerError, "failed to store imported dates")
			return
		}
		h.logger.Warn("import calendar", "error", err)
		writeError(w, http.StatusBadRequest, "invalid calendar: "+err.Error())
		return
	}

	if len(res.Created) > 0 {
		broadcast(h.hub, websocket.EntityDeadline, websocket.ActionCreated, 0, map[string]any{"count": len(res.Created)})
	}
	writeJSON(w, http.StatusOK, res)
}
