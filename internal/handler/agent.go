package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service"
)

type AgentHandler struct {
	agentService       *service.AgentService
	authService        *service.AuthService
	customFieldService *service.CustomFieldService
}

func NewAgentHandler(agentService *service.AgentService, authService *service.AuthService, customFieldService *service.CustomFieldService) *AgentHandler {
	return &AgentHandler{
		agentService:       agentService,
		authService:        authService,
		customFieldService: customFieldService,
	}
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.Agent(r.Context()))
}

func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.UpdateAgentInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode agent update", err)
		return
	}

	updated, err := h.agentService.Update(agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to update agent", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	headers, ok := multipartFiles(w, r, maxLogoUploadBody, "logo")
	if !ok {
		return
	}

	updated, err := h.agentService.UploadLogo(agent.ID, headers[0])
	if err != nil {
		writeServiceError(w, "failed to upload logo", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.agentService.DeleteAccount(r.Context(), agent.ID)
	if err != nil {
		writeServiceError(w, "failed to delete account", err, "agent_id", agent.ID)
		return
	}

	slog.Info("agent account deleted", "agent_id", agent.ID)
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type publicProfileResponse struct {
	Agent      model.PublicAgent      `json:"agent"`
	Properties []model.PublicProperty `json:"properties"`
}

// PublicProfile serves an agent's public page data with their active listings.
func (h *AgentHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	agent, properties, err := h.agentService.PublicProfile(r.PathValue("username"))
	if err != nil {
		writeServiceError(w, "failed to load public profile", err, "username", r.PathValue("username"))
		return
	}

	views, err := publicProperties(h.customFieldService, agent.ID, properties)
	if err != nil {
		writeServiceError(w, "failed to load custom fields", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, publicProfileResponse{Agent: agent.Public(), Properties: views})
}

// publicProperties labels custom values with the agent's fields, loading each
// property type and listing type combination once.
func publicProperties(customFieldService *service.CustomFieldService, agentID string, properties []*model.Property) ([]model.PublicProperty, error) {
	fieldsByCombination := map[string][]*model.CustomField{}
	views := make([]model.PublicProperty, 0, len(properties))
	for _, p := range properties {
		key := p.PropertyType + "/" + p.ListingType
		fields, ok := fieldsByCombination[key]
		if !ok {
			var err error
			fields, err = customFieldService.List(agentID, p.PropertyType, p.ListingType)
			if err != nil {
				return nil, err
			}
			fieldsByCombination[key] = fields
		}
		views = append(views, p.Public(fields))
	}
	return views, nil
}
