package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

const (
	peopleFolder    = "people"
	regaliaFolder   = "regalia"
	campusMapFolder = "campus-map"
)

// AboutHandler serves the "about the university" section: key people,
// regalia, contacts and the campus map.
type AboutHandler struct {
	store    *store.AboutStore
	settings *store.SettingsStore
	media    media
	hub      websocket.Broadcaster
	logger   *slog.Logger
}

func NewAboutHandler(as *store.AboutStore, ss *store.SettingsStore, objects ObjectStore, hub websocket.Broadcaster, logger *slog.Logger) *AboutHandler {
	return &AboutHandler{
		store:    as,
		settings: ss,
		media:    media{objects: objects, logger: logger},
		hub:      hub,
		logger:   logger,
	}
}

// ListPeople handles GET /api/about/people
func (h *AboutHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.ListPeople()
	if err != nil {
		h.logger.Error("list key people", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list key people")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(people))
}

// CreatePerson handles POST /api/about/people
func (h *AboutHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, position := f.str("name"), f.str("position")
	if name == "" || position == "" {
		writeError(w, http.StatusBadRequest, "name and position are required")
		return
	}
	sortOrder, err := f.integer("sort_order", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.media.saveImage(r, peopleFolder)
	if err != nil {
		h.logger.Warn("store person image", "error", err)
		writeUploadError(w, err)
		return
	}
	var imageURL, imagePath string
	if obj != nil {
		imageURL, imagePath = obj.URL, obj.Key
	}

	p, err := h.store.CreatePerson(name, position, f.str("bio"), imageURL, imagePath, sortOrder)
	if err != nil {
		h.media.discard(r.Context(), imagePath)
		h.logger.Error("create key person", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create key person")
		return
	}

	broadcast(h.hub, websocket.EntityKeyPerson, websocket.ActionCreated, p.ID, nil)
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePerson handles PUT /api/about/people/{id}
func (h *AboutHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetPerson(id)
	if err != nil {
		h.logger.Error("get key person", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get key person")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "key person not found")
		return
	}

	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, position, bio := existing.Name, existing.Position, existing.Bio
	if f.has("name") {
		name = f.str("name")
	}
	if f.has("position") {
		position = f.str("position")
	}
	if f.has("bio") {
		bio = f.str("bio")
	}
	if name == "" || position == "" {
		writeError(w, http.StatusBadRequest, "name and position are required")
		return
	}
	sortOrder, err := f.integer("sort_order", existing.SortOrder)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.media.saveImage(r, peopleFolder)
	if err != nil {
		h.logger.Warn("store person image", "error", err)
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

	p, err := h.store.UpdatePerson(id, name, position, bio, imageURL, imagePath, sortOrder)
	if err != nil {
		if obj != nil {
			h.media.discard(r.Context(), obj.Key)
		}
		h.logger.Error("update key person", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update key person")
		return
	}
	if imagePath != existing.ImagePath {
		h.media.discard(r.Context(), existing.ImagePath)
	}

	broadcast(h.hub, websocket.EntityKeyPerson, websocket.ActionUpdated, p.ID, nil)
	writeJSON(w, http.StatusOK, p)
}

// DeletePerson handles DELETE /api/about/people/{id}
func (h *AboutHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetPerson(id)
	if err != nil {
		h.logger.Error("get key person", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get key person")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "key person not found")
		return
	}

	if err := h.store.DeletePerson(id); err != nil {
		h.logger.Error("delete key person", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete key person")
		return
	}
	h.media.discard(r.Context(), existing.ImagePath)

	broadcast(h.hub, websocket.EntityKeyPerson, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// ListRegalia handles GET /api/about/regalia
func (h *AboutHandler) ListRegalia(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListRegalia()
	if err != nil {
		h.logger.Error("list regalia", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list regalia")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// CreateRegalia handles POST /api/about/regalia. The image part is required.
func (h *AboutHandler) CreateRegalia(w http.ResponseWriter, r *http.Request) {
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

	obj, err := h.media.saveImage(r, regaliaFolder)
	if err != nil {
		h.logger.Warn("store regalia image", "error", err)
		writeUploadError(w, err)
		return
	}
	if obj == nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	img, err := h.store.CreateRegalia(title, f.str("description"), obj.URL, obj.Key)
	if err != nil {
		h.media.discard(r.Context(), obj.Key)
		h.logger.Error("create regalia", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create regalia")
		return
	}

	broadcast(h.hub, websocket.EntityRegalia, websocket.ActionCreated, img.ID, nil)
	writeJSON(w, http.StatusCreated, img)
}

// DeleteRegalia handles DELETE /api/about/regalia/{id}
func (h *AboutHandler) DeleteRegalia(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetRegalia(id)
	if err != nil {
		h.logger.Error("get regalia", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get regalia")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "regalia not found")
		return
	}

	if err := h.store.DeleteRegalia(id); err != nil {
		h.logger.Error("delete regalia", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete regalia")
		return
	}
	h.media.discard(r.Context(), existing.ImagePath)

	broadcast(h.hub, websocket.EntityRegalia, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

type contactRequest struct {
	Label     string `json:"label"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	SortOrder int    `json:"sort_order"`
}

func (req *contactRequest) validate() string {
	req.Label = strings.TrimSpace(req.Label)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)
	if req.Label == "" {
		return "label is required"
	}
	if req.Phone == "" && req.Email == "" && req.Address == "" {
		return "phone, email or address is required"
	}
	return ""
}

// ListContacts handles GET /api/about/contacts
func (h *AboutHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.ListContacts()
	if err != nil {
		h.logger.Error("list contacts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(contacts))
}

// CreateContact handles POST /api/about/contacts
func (h *AboutHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.store.CreateContact(req.Label, req.Phone, req.Email, req.Address, req.SortOrder)
	if err != nil {
		h.logger.Error("create contact", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create contact")
		return
	}

	broadcast(h.hub, websocket.EntityContact, websocket.ActionCreated, c.ID, nil)
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContact handles PUT /api/about/contacts/{id}
func (h *AboutHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetContact(id)
	if err != nil {
		h.logger.Error("get contact", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get contact")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}

	req := contactRequest{
		Label:     existing.Label,
		Phone:     existing.Phone,
		Email:     existing.Email,
		Address:   existing.Address,
		SortOrder: existing.SortOrder,
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.store.UpdateContact(id, req.Label, req.Phone, req.Email, req.Address, req.SortOrder)
	if err != nil {
		h.logger.Error("update contact", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update contact")
		return
	}

	broadcast(h.hub, websocket.EntityContact, websocket.ActionUpdated, c.ID, nil)
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact handles DELETE /api/about/contacts/{id}
func (h *AboutHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetContact(id)
	if err != nil {
		h.logger.Error("get contact", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get contact")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}

	if err := h.store.DeleteContact(id); err != nil {
		h.logger.Error("delete contact", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}

	broadcast(h.hub, websocket.EntityContact, websocket.ActionDeleted, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// GetCampusMap handles GET /api/about/campus-map
func (h *AboutHandler) GetCampusMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.campusMap()
	if err != nil {
		h.logger.Error("get campus map", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get campus map")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateCampusMap handles PUT /api/about/campus-map. The image part replaces
// the current map.
func (h *AboutHandler) UpdateCampusMap(w http.ResponseWriter, r *http.Request) {
	if _, err := readFields(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.campusMap()
	if err != nil {
		h.logger.Error("get campus map", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get campus map")
		return
	}

	obj, err := h.media.saveImage(r, campusMapFolder)
	if err != nil {
		h.logger.Warn("store campus map", "error", err)
		writeUploadError(w, err)
		return
	}
	if obj == nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	err = h.settings.SetMany(map[string]string{
		store.KeyCampusMapURL:  obj.URL,
		store.KeyCampusMapPath: obj.Key,
	})
	if err != nil {
		h.media.discard(r.Context(), obj.Key)
		h.logger.Error("save campus map", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save campus map")
		return
	}
	h.media.discard(r.Context(), current.ImagePath)

	broadcast(h.hub, websocket.EntityCampusMap, websocket.ActionUpdated, 0, nil)
	writeJSON(w, http.StatusOK, model.CampusMap{ImageURL: obj.URL, ImagePath: obj.Key})
}

func (h *AboutHandler) campusMap() (model.CampusMap, error) {
	s, err := h.settings.GetCampusMapSettings()
	if err != nil {
		return model.CampusMap{}, err
	}
	return model.CampusMap{ImageURL: s[store.KeyCampusMapURL], ImagePath: s[store.KeyCampusMapPath]}, nil
}
