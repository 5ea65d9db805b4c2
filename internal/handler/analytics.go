package handler

import (
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	analytics, err := h.analyticsService.ForAgent(agent.ID)
	if err != nil {
		writeServiceError(w, "failed to compute analytics", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}
