package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

const (
	UploadTokenHeader = "X-Upload-Token"
	UploadTokenQuery  = "upload_token"
)

// UploadTokenFromRequest returns the upload token carried by the header or the query string.
func UploadTokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(UploadTokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get(UploadTokenQuery))
}

// bearerToken extracts the JWT from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware resolves the session agent and its subscription into the context.
// A Bearer header wins over the cookie. Requests carrying an upload token are never
// session-authenticated, so the token is the only credential they present.
func AuthMiddleware(authService *service.AuthService, subscriptionService *service.SubscriptionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UploadTokenFromRequest(r) != "" {
				next.ServeHTTP(w, r)
				return
			}

			method := ctxkeys.AuthMethodBearer
			token := bearerToken(r)
			if token == "" {
				cookie, err := r.Cookie(service.AuthCookieName)
				if err != nil || cookie.Value == "" {
					next.ServeHTTP(w, r)
					return
				}
				method = ctxkeys.AuthMethodCookie
				token = cookie.Value
			}

			agent, err := authService.AgentFromJWT(token)
			if err != nil {
				if method == ctxkeys.AuthMethodCookie {
					authService.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			subscription, err := subscriptionService.Subscription(agent.ID)
			if err != nil {
				slog.Error("failed to load subscription", "error", err, "agent_id", agent.ID)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithAgent(r.Context(), agent)
			ctx = ctxkeys.WithSubscription(ctx, subscription)
			ctx = ctxkeys.WithAuthMethod(ctx, method)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAgent rejects requests without an authenticated agent.
func RequireAgent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Agent(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}
