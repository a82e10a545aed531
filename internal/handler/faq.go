package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

// Mailer delivers feedback replies to the submitter. *email.Client
// satisfies it.
type Mailer interface {
	SendFeedbackReply(ctx context.Context, fb *model.Feedback) error
}

type FAQHandler struct {
	faqs     *store.FAQStore
	feedback *store.FeedbackStore
	mailer   Mailer
	hub      websocket.Broadcaster
	logger   *slog.Logger
}

// NewFAQHandler creates the FAQ and feedback handler. mailer may be nil, in
// which case replies are only stored.
func NewFAQHandler(fs *store.FAQStore, fb *store.FeedbackStore, mailer Mailer, hub websocket.Broadcaster, logger *slog.Logger) *FAQHandler {
	return &FAQHandler{faqs: fs, feedback: fb, mailer: mailer, hub: hub, logger: logger}
}

type faqRequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SortOrder int    `json:"sort_order"`
}

// List handles GET /api/faqs
func (h *FAQHandler) List(w http.ResponseWriter, r *http.Request) {
	faqs, err := h.faqs.List()
	if err != nil {
		h.logger.Error("list faqs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list faqs")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(faqs))
}

// Create handles POST /api/faqs
func (h *FAQHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req faqRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "question and answer are required")
		return
	}

	faq, err := h.faqs.Create(req.Question, req.Answer, req.SortOrder)
	if err != nil {
		h.logger.Error("create faq", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create faq")
		return
	}

	broadcast(h.hub, websocket.EntityFAQ, websocket.ActionCreated, faq.ID, nil)
	writeJSON(w, http.StatusCreated, faq)
}

// Update handles PUT /api/faqs/{id}
func (h *FAQHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.faqs.GetByID(id)
	if err != nil {
		h.logger.Error("get faq", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get faq")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "faq not found")
		return
	}

	req := faqRequest{Question: existing.Question, Answer: existing.Answer, SortOrder: existing.SortOrder}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "question and answer are required")
		return
	}

	faq, err := h.faqs.Update(id, req.Question, req.Answer, req.SortOrder)
	if err != nil {
		h.logger.Error("update faq", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update faq")
		return
	}

	broadcast(h.hub, websocket.EntityFAQ, websocket.ActionUpdated, faq.ID, nil)
	writeJSON(w, http.StatusOK, faq)
}

// Delete handles DELETE /api/faqs/{id}
func (h *FAQHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.faqs.GetByID(id)
	if err != nil {
		h.logger.Error("get faq", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get faq")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "faq not found")
		return
	}

	if err := h.faqs.Delete(id); err != nil {
		h.logger.Error("delete faq", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete faq")
		return
	}

	broadcast(h.hub, websocket.EntityFAQ, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// ListFeedback handles GET /api/feedback
func (h *FAQHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.List()
	if err != nil {
		h.logger.Error("list feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// ReplyFeedback handles PUT /api/feedback/{id}/reply
func (h *FAQHandler) ReplyFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Reply string `json:"reply"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Reply = strings.TrimSpace(req.Reply)
	if req.Reply == "" {
		writeError(w, http.StatusBadRequest, "reply is required")
		return
	}

	fb, err := h.feedback.Reply(id, req.Reply)
	if err != nil {
		h.logger.Error("reply feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save reply")
		return
	}
	if fb == nil {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}

	emailed := false
	if h.mailer != nil && fb.Email != "" {
		if err := h.mailer.SendFeedbackReply(r.Context(), fb); err != nil {
			h.logger.Warn("email feedback reply", "feedback", fb.ID, "error", err)
		} else {
			emailed = true
		}
	}

	broadcast(h.hub, websocket.EntityFeedback, websocket.ActionUpdated, fb.ID, map[string]any{"emailed": emailed})
	writeJSON(w, http.StatusOK, fb)
}

// DeleteFeedback handles DELETE /api/feedback/{id}
func (h *FAQHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.feedback.GetByID(id)
	if err != nil {
		h.logger.Error("get feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get feedback")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}

	if err := h.feedback.Delete(id); err != nil {
		h.logger.Error("delete feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete feedback")
		return
	}

	broadcast(h.hub, websocket.EntityFeedback, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
