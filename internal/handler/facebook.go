package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

const (
	facebookStateCookie = "facebook_oauth_state"
	settingsPage        = "/app/settings"
)

type FacebookHandler struct {
	facebookService *service.FacebookService
	enabled         bool
}

func NewFacebookHandler(facebookService *service.FacebookService, enabled bool) *FacebookHandler {
	return &FacebookHandler{facebookService: facebookService, enabled: enabled}
}

// Connect starts the OAuth flow for managing the agent's pages.
func (h *FacebookHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, http.StatusServiceUnavailable, "facebook integration is not configured")
		return
	}

	state := setOAuthState(w, r, facebookStateCookie)
	http.Redirect(w, r, h.facebookService.ConnectURL(state), http.StatusTemporaryRedirect)
}

func (h *FacebookHandler) Callback(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	if !checkOAuthState(w, r, facebookStateCookie) {
		slog.Warn("facebook oauth state validation failed", "agent_id", agent.ID)
		http.Redirect(w, r, settingsPage+"?facebook=error", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		// The agent declined the permissions
		http.Redirect(w, r, settingsPage+"?facebook=cancelled", http.StatusSeeOther)
		return
	}

	_, err := h.facebookService.Connect(r.Context(), agent.ID, code)
	if err != nil {
		slog.Error("failed to connect facebook", "error", err, "agent_id", agent.ID)
		http.Redirect(w, r, settingsPage+"?facebook=error", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, settingsPage+"?facebook=connected", http.StatusSeeOther)
}

func (h *FacebookHandler) Pages(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	pages, err := h.facebookService.Pages(r.Context(), agent.ID)
	if err != nil {
		writeServiceError(w, "failed to list facebook pages", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, pages)
}

func (h *FacebookHandler) SelectPage(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		PageID string `json:"page_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode page selection", err)
		return
	}

	updated, err := h.facebookService.SelectPage(r.Context(), agent.ID, req.PageID)
	if err != nil {
		writeServiceError(w, "failed to select facebook page", err, "agent_id", agent.ID, "page_id", req.PageID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"facebook_page_id":   updated.FacebookPageID,
		"facebook_page_name": updated.FacebookPageName,
	})
}

func (h *FacebookHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.facebookService.Disconnect(agent.ID)
	if err != nil {
		writeServiceError(w, "failed to disconnect facebook", err, "agent_id", agent.ID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FacebookHandler) PublishProperty(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode facebook post", err)
		return
	}

	postID, err := h.facebookService.PublishProperty(r.Context(), agent.ID, r.PathValue("id"), req.Message)
	if err != nil {
		writeServiceError(w, "failed to publish to facebook", err, "agent_id", agent.ID, "property_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"post_id": postID})
}
