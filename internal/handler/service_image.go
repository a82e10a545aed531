package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

const serviceImageFolder = "services"

type ServiceImageHandler struct {
	store  *store.ServiceImageStore
	media  media
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewServiceImageHandler(ss *store.ServiceImageStore, objects ObjectStore, hub websocket.Broadcaster, logger *slog.Logger) *ServiceImageHandler {
	return &ServiceImageHandler{
		store:  ss,
		media:  media{objects: objects, logger: logger},
		hub:    hub,
		logger: logger,
	}
}

// List handles GET /api/service-images
func (h *ServiceImageHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		h.logger.Error("list service images", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list service images")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// Create handles POST /api/service-images. The image part is required.
func (h *ServiceImageHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := f.str("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	sortOrder, err := f.integer("sort_order", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.media.saveImage(r, serviceImageFolder)
	if err != nil {
		h.logger.Warn("store service image", "error", err)
		writeUploadError(w, err)
		return
	}
	if obj == nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	img, err := h.store.Create(title, obj.URL, obj.Key, sortOrder)
	if err != nil {
		h.media.discard(r.Context(), obj.Key)
		h.logger.Error("create service image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create service image")
		return
	}

	broadcast(h.hub, websocket.EntityServiceImage, websocket.ActionCreated, img.ID, nil)
	writeJSON(w, http.StatusCreated, img)
}

// Update handles PUT /api/service-images/{id}
func (h *ServiceImageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get service image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get service image")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "service image not found")
		return
	}

	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := existing.Title
	if f.has("title") {
		title = f.str("title")
	}
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	sortOrder, err := f.integer("sort_order", existing.SortOrder)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.media.saveImage(r, serviceImageFolder)
	if err != nil {
		h.logger.Warn("store service image", "error", err)
		writeUploadError(w, err)
		return
	}
	imageURL, imagePath := existing.ImageURL, existing.ImagePath
	if obj != nil {
		imageURL, imagePath = obj.URL, obj.Key
	}

	img, err := h.store.Update(id, title, imageURL, imagePath, sortOrder)
	if err != nil {
		if obj != nil {
			h.media.discard(r.Context(), obj.Key)
		}
		h.logger.Error("update service image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update service image")
		return
	}
	if obj != nil {
		h.media.discard(r.Context(), existing.ImagePath)
	}

	broadcast(h.hub, websocket.EntityServiceImage, websocket.ActionUpdated, img.ID, nil)
	writeJSON(w, http.StatusOK, img)
}

// Delete handles DELETE /api/service-images/{id}
func (h *ServiceImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get service image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get service image")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "service image not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete service image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete service image")
		return
	}
	h.media.discard(r.Context(), existing.ImagePath)

	broadcast(h.hub, websocket.EntityServiceImage, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
