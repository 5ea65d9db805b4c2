package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleStateCookie = "oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	appHome           = "/app"
)

type AuthHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	googleUserInfoURL string
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		googleUserInfoURL: googleUserInfoURL,
	}
}

type sessionResponse struct {
	Token string       `json:"token"`
	Agent *model.Agent `json:"agent"`
}

type meResponse struct {
	Agent            *model.Agent        `json:"agent"`
	Subscription     *model.Subscription `json:"subscription"`
	Plan             string              `json:"plan"`
	Limits           model.PlanLimits    `json:"limits"`
	CreditsRemaining int                 `json:"credits_remaining"`
	HasPassword      bool                `json:"has_password"`
}

func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode magic link request", err)
		return
	}

	err := h.authService.SendMagicLink(req.Email)
	if err != nil {
		status, _ := classify(err)
		if status < http.StatusInternalServerError {
			writeServiceError(w, "failed to send magic link", err)
			return
		}
		// Same answer for every address so accounts cannot be enumerated
		slog.Error("failed to send magic link", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "If the address is valid, a login link is on its way."})
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	agent, err := h.authService.VerifyMagicLink(r.PathValue("token"))
	if err != nil {
		writeServiceError(w, "failed to verify magic link", err)
		return
	}

	if _, err := h.authService.IssueSession(w, agent); err != nil {
		writeServiceError(w, "failed to issue session", err, "agent_id", agent.ID)
		return
	}

	http.Redirect(w, r, appHome, http.StatusSeeOther)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode login request", err)
		return
	}

	agent, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "failed to log in", err)
		return
	}

	token, err := h.authService.IssueSession(w, agent)
	if err != nil {
		writeServiceError(w, "failed to issue session", err, "agent_id", agent.ID)
		return
	}

	slog.Info("agent logged in with password", "agent_id", agent.ID)
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Agent: agent})
}

func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode password request", err)
		return
	}

	err := h.authService.SetPassword(agent.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, "failed to set password", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated."})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())
	subscription := ctxkeys.Subscription(r.Context())

	writeJSON(w, http.StatusOK, meResponse{
		Agent:            agent,
		Subscription:     subscription,
		Plan:             subscription.EffectivePlan(),
		Limits:           subscription.Limits(),
		CreditsRemaining: agent.CreditsRemaining(),
		HasPassword:      agent.HasPassword(),
	})
}

// CSRFToken hands the per-session CSRF token to browser clients.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": ctxkeys.CSRFToken(r.Context())})
}

// GoogleAuth redirects to the Google consent screen.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig.ClientID == "" {
		writeError(w, http.StatusServiceUnavailable, "google login is not configured")
		return
	}

	state := setOAuthState(w, r, googleStateCookie)
	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the Google flow and logs in or creates the agent.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !checkOAuthState(w, r, googleStateCookie) {
		slog.Warn("google oauth state validation failed")
		writeError(w, http.StatusUnauthorized, "oauth authentication failed, please try again")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		writeError(w, http.StatusUnauthorized, "oauth authentication failed, please try again")
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, "oauth authentication failed, please try again")
		return
	}

	client := h.googleOAuthConfig.Client(r.Context(), token)
	resp, err := client.Get(h.googleUserInfoURL)
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		writeError(w, http.StatusBadGateway, "could not reach google")
		return
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var userInfo struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode google user info", "error", err)
		writeError(w, http.StatusBadGateway, "invalid response from google")
		return
	}
	if !userInfo.VerifiedEmail {
		writeError(w, http.StatusUnauthorized, "your google email address is not verified")
		return
	}

	agent, err := h.authService.AuthenticateOAuth(userInfo.Email, userInfo.Name, "google")
	if err != nil {
		writeServiceError(w, "oauth authentication failed", err, "email", userInfo.Email)
		return
	}

	if _, err := h.authService.IssueSession(w, agent); err != nil {
		writeServiceError(w, "failed to issue session", err, "agent_id", agent.ID)
		return
	}

	slog.Info("agent logged in with google oauth", "agent_id", agent.ID)
	http.Redirect(w, r, appHome, http.StatusSeeOther)
}
