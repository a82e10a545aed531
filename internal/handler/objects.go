package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/backup"
	"github.com/dukerupert/convocation/internal/storage"
)

type ObjectHandler struct {
	objects ObjectStore
	logger  *slog.Logger
}

func NewObjectHandler(objects ObjectStore, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{objects: objects, logger: logger}
}

// Redirect handles GET /api/objects/{key...} by redirecting to a short-lived
// download link for the stored object.
func (h *ObjectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid object key")
		return
	}
	// Snapshots are only reachable through the backup download route.
	if strings.HasPrefix(key, backup.Folder+"/") {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}

	u, err := h.objects.DownloadURL(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
			return
		}
		h.logger.Error("object download url", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "failed to resolve object")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	http.Redirect(w, r, u, http.StatusFound)
}
