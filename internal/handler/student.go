package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

type StudentHandler struct {
	store  *store.StudentStore
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewStudentHandler(ss *store.StudentStore, hub websocket.Broadcaster, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{store: ss, hub: hub, logger: logger}
}

// List handles GET /api/students?faculty=
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.List(strings.TrimSpace(r.URL.Query().Get("faculty")))
	if err != nil {
		h.logger.Error("list students", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(students))
}

// Create handles POST /api/students
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		MatricNo string `json:"matric_no"`
		Faculty  string `json:"faculty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.MatricNo = strings.TrimSpace(req.MatricNo)
	req.Faculty = strings.TrimSpace(req.Faculty)
	if req.Name == "" || req.MatricNo == "" {
		writeError(w, http.StatusBadRequest, "name and matric_no are required")
		return
	}

	existing, err := h.store.GetByMatricNo(req.MatricNo)
	if err != nil {
		h.logger.Error("get student", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create student")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "matric_no already registered")
		return
	}

	st, err := h.store.Create(req.Name, req.MatricNo, req.Faculty)
	if err != nil {
		h.logger.Error("create student", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create student")
		return
	}

	broadcast(h.hub, websocket.EntityStudent, websocket.ActionCreated, st.ID, nil)
	writeJSON(w, http.StatusCreated, st)
}

// Delete handles DELETE /api/students/{id}
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get student", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get student")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete student", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}

	broadcast(h.hub, websocket.EntityStudent, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
