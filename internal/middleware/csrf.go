package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenBytes = 32
	csrfCookieAge  = 7 * 24 * 60 * 60
)

// CSRFProtection enforces the double-submit cookie on unsafe requests that
// authenticate with the session cookie. Bearer, upload-token and webhook
// requests carry no ambient credential and pass through.
func CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := csrfCookie(w, r)
		r = r.WithContext(ctxkeys.WithCSRFToken(r.Context(), token))

		if safeMethod(r.Method) || !cookieAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		submitted := r.Header.Get(csrfHeader)
		if submitted == "" && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			submitted = r.PostFormValue(csrfFormField)
		}
		if submitted == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
			slog.Warn("csrf validation failed", "path", r.URL.Path, "method", r.Method, "ip", getClientIP(r))
			writeError(w, http.StatusForbidden, "invalid CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func cookieAuthenticated(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/webhooks/") || bearerToken(r) != "" || UploadTokenFromRequest(r) != "" {
		return false
	}
	cookie, err := r.Cookie(service.AuthCookieName)
	return err == nil && cookie.Value != ""
}

// csrfCookie returns the request's CSRF token, issuing a new cookie when the
// current one is missing or malformed.
func csrfCookie(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && len(cookie.Value) == base64.RawURLEncoding.EncodedLen(csrfTokenBytes) {
		return cookie.Value
	}

	token := generateCSRFToken()
	cfg := ctxkeys.Config(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   csrfCookieAge,
	})
	return token
}

func generateCSRFToken() string {
	token, err := randomToken(csrfTokenBytes, base64.RawURLEncoding)
	if err != nil {
		panic("failed to generate csrf token: " + err.Error())
	}
	return token
}
