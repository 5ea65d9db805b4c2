package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
)

const oauthStateMaxAge = 600

// setOAuthState stores a fresh state token in a short-lived cookie and returns it.
func setOAuthState(w http.ResponseWriter, r *http.Request, cookieName string) string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	cfg := ctxkeys.Config(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthStateMaxAge,
	})
	return state
}

// checkOAuthState compares the callback state with the cookie and clears the cookie.
func checkOAuthState(w http.ResponseWriter, r *http.Request, cookieName string) bool {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(cookieName)

	http.SetCookie(w, &http.Cookie{
		Name:   cookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if err != nil || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}
