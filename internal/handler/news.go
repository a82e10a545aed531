package handler

import (
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/notify"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

const (
	newsFolder        = "news"
	newsPreviewLength = 140
)

type NewsHandler struct {
	store    *store.NewsStore
	notifier *notify.Service
	media    media
	hub      websocket.Broadcaster
	logger   *slog.Logger
}

func NewNewsHandler(ns *store.NewsStore, notifier *notify.Service, objects ObjectStore, hub websocket.Broadcaster, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{
		store:    ns,
		notifier: notifier,
		media:    media{objects: objects, logger: logger},
		hub:      hub,
		logger:   logger,
	}
}

// List handles GET /api/news
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		h.logger.Error("list news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list news")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// Create handles POST /api/news. Accepts JSON or multipart with an optional
// image part; notify=true also sends a news notification.
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, body := f.str("title"), f.str("body")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	obj, err := h.media.saveImage(r, newsFolder)
	if err != nil {
		h.logger.Warn("store news image", "error", err)
		writeUploadError(w, err)
		return
	}
	var imageURL, imagePath string
	if obj != nil {
		imageURL, imagePath = obj.URL, obj.Key
	}

	n, err := h.store.Create(title, body, imageURL, imagePath)
	if err != nil {
		h.media.discard(r.Context(), imagePath)
		h.logger.Error("create news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create news")
		return
	}

	broadcast(h.hub, websocket.EntityNews, websocket.ActionCreated, n.ID, nil)

	if f.boolean("notify") {
		h.announce(r, n)
	}
	writeJSON(w, http.StatusCreated, n)
}

// announce sends the news notification. The article is already saved, so a
// failure is logged and does not fail the request.
func (h *NewsHandler) announce(r *http.Request, n *model.News) {
	if h.notifier == nil {
		return
	}
	_, err := h.notifier.Send(r.Context(), notify.Request{
		Type:     model.NotifTypeNews,
		Title:    n.Title,
		Body:     preview(n.Body, newsPreviewLength),
		Metadata: map[string]any{"news_id": n.ID},
	})
	if err != nil {
		h.logger.Warn("send news notification", "news", n.ID, "error", err)
	}
}

// Update handles PUT /api/news/{id}. A new image replaces the stored one;
// remove_image=true clears it and notify=true re-announces the post.
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get news")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "news not found")
		return
	}

	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, body := existing.Title, existing.Body
	if f.has("title") {
		title = f.str("title")
	}
	if f.has("body") {
		body = f.str("body")
	}
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	obj, err := h.media.saveImage(r, newsFolder)
	if err != nil {
		h.logger.Warn("store news image", "error", err)
		writeUploadError(w, err)
		return
	}
	imageURL, imagePath := existing.ImageURL, existing.ImagePath
	switch {
	case obj != nil:
		imageURL, imagePath = obj.URL, obj.Key
	case f.boolean("remove_image"):
		imageURL, imagePath = "", ""
	}

	n, err := h.store.Update(id, title, body, imageURL, imagePath)
	if err != nil {
		if obj != nil {
			h.media.discard(r.Context(), obj.Key)
		}
		h.logger.Error("update news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update news")
		return
	}
	if imagePath != existing.ImagePath {
		h.media.discard(r.Context(), existing.ImagePath)
	}

	broadcast(h.hub, websocket.EntityNews, websocket.ActionUpdated, n.ID, nil)

	if f.boolean("notify") {
		h.announce(r, n)
	}
	writeJSON(w, http.StatusOK, n)
}

// Delete handles DELETE /api/news/{id}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get news")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "news not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete news", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete news")
		return
	}
	h.media.discard(r.Context(), existing.ImagePath)

	broadcast(h.hub, websocket.EntityNews, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
