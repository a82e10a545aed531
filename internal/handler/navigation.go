package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

type NavigationHandler struct {
	store  *store.NavigationStore
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewNavigationHandler(ns *store.NavigationStore, hub websocket.Broadcaster, logger *slog.Logger) *NavigationHandler {
	return &NavigationHandler{store: ns, hub: hub, logger: logger}
}

type navigationRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (req *navigationRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.Name == "":
		return "name is required"
	case req.Latitude == nil || req.Longitude == nil:
		return "latitude and longitude are required"
	case *req.Latitude < -90 || *req.Latitude > 90:
		return "latitude must be between -90 and 90"
	case *req.Longitude < -180 || *req.Longitude > 180:
		return "longitude must be between -180 and 180"
	}
	return ""
}

// List handles GET /api/navigation
func (h *NavigationHandler) List(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.List()
	if err != nil {
		h.logger.Error("list navigation points", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list navigation points")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(points))
}

// Create handles POST /api/navigation
func (h *NavigationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.store.Create(req.Name, req.Category, req.Description, *req.Latitude, *req.Longitude)
	if err != nil {
		h.logger.Error("create navigation point", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create navigation point")
		return
	}

	broadcast(h.hub, websocket.EntityNavigation, websocket.ActionCreated, p.ID, nil)
	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/navigation/{id}
func (h *NavigationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get navigation point", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get navigation point")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "navigation point not found")
		return
	}

	req := navigationRequest{
		Name:        existing.Name,
		Category:    existing.Category,
		Description: existing.Description,
		Latitude:    &existing.Latitude,
		Longitude:   &existing.Longitude,
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.store.Update(id, req.Name, req.Category, req.Description, *req.Latitude, *req.Longitude)
	if err != nil {
		h.logger.Error("update navigation point", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update navigation point")
		return
	}

	broadcast(h.hub, websocket.EntityNavigation, websocket.ActionUpdated, p.ID, nil)
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/navigation/{id}
func (h *NavigationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get navigation point", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get navigation point")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "navigation point not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete navigation point", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete navigation point")
		return
	}

	broadcast(h.hub, websocket.EntityNavigation, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
