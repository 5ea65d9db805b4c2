package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/templui/estatedesk/internal/ctxkeys"
)

// SecurityHeaders sets CSP and the usual hardening headers on every response.
// Listing media is served from the bucket, so its origin is allowed for images and media.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy(r))
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		if cfg := ctxkeys.Config(r.Context()); cfg != nil && cfg.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func contentSecurityPolicy(r *http.Request) string {
	scriptSrc := "'self'"
	if nonce := GetNonce(r.Context()); nonce != "" {
		scriptSrc += " 'nonce-" + nonce + "'"
	}

	mediaSrc := "'self' data: blob:"
	if cfg := ctxkeys.Config(r.Context()); cfg != nil {
		for _, raw := range []string{cfg.S3PublicURL, cfg.S3Endpoint} {
			if origin := originOf(raw); origin != "" {
				mediaSrc += " " + origin
			}
		}
	}
	// Buckets without a public URL are addressed through the AWS virtual-host style.
	mediaSrc += " https://*.amazonaws.com"

	directives := []string{
		"default-src 'self'",
		"script-src " + scriptSrc,
		"style-src 'self' 'unsafe-inline'",
		"img-src " + mediaSrc,
		"media-src " + mediaSrc,
		"frame-src https://iframe.videodelivery.net https://*.cloudflarestream.com",
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

func originOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
