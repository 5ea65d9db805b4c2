package handler

import (
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

type AIHandler struct {
	aiService *service.AIService
}

func NewAIHandler(aiService *service.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

func (h *AIHandler) Description(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.DescriptionInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode description request", err)
		return
	}

	description, err := h.aiService.GenerateDescription(r.Context(), agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to generate description", err, "agent_id", agent.ID, "property_id", in.PropertyID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"description": description, "saved": in.Save})
}

func (h *AIHandler) MarketingImage(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.MarketingImageInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode marketing image request", err)
		return
	}

	property, url, err := h.aiService.GenerateMarketingImage(r.Context(), agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to generate marketing image", err, "agent_id", agent.ID, "property_id", in.PropertyID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"url": url, "property": property})
}
