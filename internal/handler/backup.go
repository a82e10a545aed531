package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/convocation/internal/backup"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/storage"
	"github.com/dukerupert/convocation/internal/store"
)

const backupListLimit = 50

// BackupRunner takes a backup on demand. *backup.Manager satisfies it.
type BackupRunner interface {
	Run(ctx context.Context) (*model.Backup, error)
	Status() backup.Status
}

type BackupHandler struct {
	store   *store.BackupStore
	runner  BackupRunner
	objects ObjectStore
	logger  *slog.Logger
}

// NewBackupHandler creates the backup handler. runner is nil when backups
// are not configured.
func NewBackupHandler(bs *store.BackupStore, runner BackupRunner, objects ObjectStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{store: bs, runner: runner, objects: objects, logger: logger}
}

type backupListResponse struct {
	Enabled bool           `json:"enabled"`
	Status  *backup.Status `json:"status,omitempty"`
	Backups []model.Backup `json:"backups"`
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}

	resp := backupListResponse{Enabled: h.runner != nil, Backups: orEmpty(items)}
	if h.runner != nil {
		st := h.runner.Status()
		resp.Status = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/backups by running a backup immediately.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	rec, err := h.runner.Run(r.Context())
	switch {
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, "a backup is already running")
		return
	case errors.Is(err, storage.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	case err != nil:
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusBadGateway, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Download handles GET /api/backups/{id}/download by redirecting to a
// short-lived link for the sealed snapshot.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get backup", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get backup")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}
	if rec.Status != model.BackupStatusCompleted {
		writeError(w, http.StatusConflict, "backup did not complete")
		return
	}

	u, err := h.objects.DownloadURL(r.Context(), rec.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
			return
		}
		h.logger.Error("backup download url", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to resolve backup")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, u, http.StatusFound)
}
