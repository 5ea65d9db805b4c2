package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/middleware"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

const (
	maxLogoUploadBody  = 5<<20 + 1<<20
	maxPhotoUploadBody = 30*10<<20 + 1<<20
	maxVideoUploadBody = 200<<20 + 1<<20
	maxAudioUploadBody = 25<<20 + 1<<20
)

type PropertyHandler struct {
	propertyService    *service.PropertyService
	uploadTokenService *service.UploadTokenService
	exportService      *service.ExportService
}

func NewPropertyHandler(propertyService *service.PropertyService, uploadTokenService *service.UploadTokenService, exportService *service.ExportService) *PropertyHandler {
	return &PropertyHandler{
		propertyService:    propertyService,
		uploadTokenService: uploadTokenService,
		exportService:      exportService,
	}
}

// writeUploadTokenError answers an unknown token with 401 and a rejected one with 403.
func writeUploadTokenError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrUploadTokenNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid upload link")
		return
	}
	writeServiceError(w, "failed to authorize upload token", err)
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())
	q := r.URL.Query()

	filter := model.PropertyFilter{
		Status:       q.Get("status"),
		PropertyType: q.Get("property_type"),
		ListingType:  q.Get("listing_type"),
		Query:        q.Get("q"),
		Page:         queryInt(r, "page", 1),
		PerPage:      queryInt(r, "per_page", 0),
	}

	properties, total, filter, err := h.propertyService.List(agent.ID, filter)
	if err != nil {
		writeServiceError(w, "failed to list properties", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, paginated{
		Data: properties,
		Meta: pageMeta{Page: filter.Page, PerPage: filter.PerPage, Total: total},
	})
}

// Create accepts either a signed-in agent or an upload token.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.PropertyInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode property", err)
		return
	}

	if value := middleware.UploadTokenFromRequest(r); value != "" {
		token, err := h.uploadTokenService.Authorize(value)
		if err != nil {
			writeUploadTokenError(w, err)
			return
		}

		property, err := h.propertyService.CreateWithUploadToken(token, in)
		if err != nil {
			writeServiceError(w, "failed to create property with upload token", err, "upload_token_id", token.ID)
			return
		}
		writeJSON(w, http.StatusCreated, property)
		return
	}

	agent := ctxkeys.Agent(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	property, err := h.propertyService.Create(agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to create property", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	property, err := h.propertyService.Owned(agent.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "failed to get property", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.PropertyInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode property", err)
		return
	}

	property, err := h.propertyService.Update(agent.ID, r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, "failed to update property", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.propertyService.Delete(r.Context(), agent.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "failed to delete property", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PropertyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode status", err)
		return
	}

	property, err := h.propertyService.UpdateStatus(agent.ID, r.PathValue("id"), req.Status)
	if err != nil {
		writeServiceError(w, "failed to update property status", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

// AddPhotos accepts a signed-in owner or the upload token that created the property.
func (h *PropertyHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	propertyID := r.PathValue("id")

	var agentID string
	if value := middleware.UploadTokenFromRequest(r); value != "" {
		token, err := h.uploadTokenService.AuthorizeProperty(value, propertyID)
		if err != nil {
			writeUploadTokenError(w, err)
			return
		}
		agentID = token.AgentID
	} else if agent := ctxkeys.Agent(r.Context()); agent != nil {
		agentID = agent.ID
	} else {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	headers, ok := multipartFiles(w, r, maxPhotoUploadBody, "photos[]", "photos")
	if !ok {
		return
	}

	property, err := h.propertyService.AddPhotos(agentID, propertyID, headers)
	if err != nil {
		writeServiceError(w, "failed to add photos", err, "agent_id", agentID, "property_id", propertyID)
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode photo", err)
		return
	}

	property, err := h.propertyService.RemovePhoto(agent.ID, r.PathValue("id"), req.URL)
	if err != nil {
		writeServiceError(w, "failed to remove photo", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		URLs []string `json:"urls"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode photo order", err)
		return
	}

	property, err := h.propertyService.ReorderPhotos(agent.ID, r.PathValue("id"), req.URLs)
	if err != nil {
		writeServiceError(w, "failed to reorder photos", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	headers, ok := multipartFiles(w, r, maxVideoUploadBody, "video")
	if !ok {
		return
	}

	property, err := h.propertyService.UploadVideo(r.Context(), agent.ID, r.PathValue("id"), headers[0])
	if err != nil {
		writeServiceError(w, "failed to upload video", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusAccepted, property)
}

func (h *PropertyHandler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	property, err := h.propertyService.RefreshVideo(r.Context(), agent.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "failed to refresh video status", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"video_uid":           property.VideoUID,
		"video_status":        property.VideoStatus,
		"video_playback_url":  property.VideoPlaybackURL,
		"video_thumbnail_url": property.VideoThumbnailURL,
	})
}

func (h *PropertyHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	headers, ok := multipartFiles(w, r, maxAudioUploadBody, "audio")
	if !ok {
		return
	}

	property, err := h.propertyService.UploadAudio(r.Context(), agent.ID, r.PathValue("id"), headers[0])
	if err != nil {
		writeServiceError(w, "failed to process audio", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.exportService.CanExport(agent.ID)
	if err != nil {
		writeServiceError(w, "failed to check export feature", err, "agent_id", agent.ID)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="properties.csv"`)
	err = h.exportService.WriteCSV(w, agent.ID)
	if err != nil {
		// Headers are already sent
		slog.Error("failed to export properties", "error", err, "agent_id", agent.ID)
	}
}

// multipartFiles parses a multipart body and returns the files of the first
// field name that has any. It writes the error response itself.
func multipartFiles(w http.ResponseWriter, r *http.Request, maxBody int64, fields ...string) ([]*multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	err := r.ParseMultipartForm(maxMultipartBody)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "request must be multipart/form-data")
		return nil, false
	}

	for _, field := range fields {
		if headers := r.MultipartForm.File[field]; len(headers) > 0 {
			return headers, true
		}
	}
	writeError(w, http.StatusBadRequest, fields[0]+" file is required")
	return nil, false
}
