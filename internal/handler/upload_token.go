package handler

import (
	"errors"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

type UploadTokenHandler struct {
	uploadTokenService *service.UploadTokenService
}

func NewUploadTokenHandler(uploadTokenService *service.UploadTokenService) *UploadTokenHandler {
	return &UploadTokenHandler{uploadTokenService: uploadTokenService}
}

func (h *UploadTokenHandler) List(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	tokens, err := h.uploadTokenService.List(agent.ID)
	if err != nil {
		writeServiceError(w, "failed to list upload tokens", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *UploadTokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.CreateUploadTokenInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode upload token", err)
		return
	}

	token, err := h.uploadTokenService.Create(agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to create upload token", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

func (h *UploadTokenHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.uploadTokenService.Deactivate(agent.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "failed to deactivate upload token", err, "agent_id", agent.ID, "upload_token_id", r.PathValue("id"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type uploadTokenRejection struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// Validate is called by the public upload page before it shows the form.
// Unknown tokens answer 404, known but unusable ones 410 with the reason.
func (h *UploadTokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	form, err := h.uploadTokenService.Validate(r.PathValue("token"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUploadTokenNotFound):
			writeError(w, http.StatusNotFound, "upload link not found")
		case service.IsUploadTokenRejection(err):
			writeJSON(w, http.StatusGone, uploadTokenRejection{Reason: rejectionReason(err), Error: err.Error()})
		default:
			writeServiceError(w, "failed to validate upload token", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, form)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrUploadTokenInactive):
		return "inactive"
	case errors.Is(err, service.ErrUploadTokenExpired):
		return "expired"
	case errors.Is(err, service.ErrUploadTokenUsedUp):
		return "used_up"
	default:
		return "invalid"
	}
}
