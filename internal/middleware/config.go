package middleware

import (
	"net/http"

	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/ctxkeys"
)

// Config puts the sanitized configuration on the request context.
// SecurityHeaders and the public pages read it from there.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	public := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithConfig(r.Context(), public)))
		})
	}
}
