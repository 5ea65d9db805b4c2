package routes

import (
	"net/http"

	"github.com/templui/estatedesk/internal/app"
	"github.com/templui/estatedesk/internal/handler"
	"github.com/templui/estatedesk/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	agent := handler.NewAgentHandler(app.AgentService, app.AuthService, app.CustomFieldService)
	property := handler.NewPropertyHandler(app.PropertyService, app.UploadTokenService, app.ExportService)
	public := handler.NewPublicHandler(app.PropertyService, app.AgentService, app.CustomFieldService, app.CurrencyService, app.Parser, app.Cfg)
	customField := handler.NewCustomFieldHandler(app.CustomFieldService)
	uploadToken := handler.NewUploadTokenHandler(app.UploadTokenService)
	ai := handler.NewAIHandler(app.AIService)
	facebook := handler.NewFacebookHandler(app.FacebookService, app.Facebook.Enabled())
	billing := handler.NewBillingHandler(app.PaymentService)
	analytics := handler.NewAnalyticsHandler(app.AnalyticsService)
	site := handler.NewSiteHandler(app.SitemapService, app.LegalService, app.DB, app.Cfg.AppName)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Platform
	mux.HandleFunc("GET /healthz", site.Healthz)
	mux.HandleFunc("GET /robots.txt", site.Robots)
	mux.HandleFunc("GET /sitemap.xml", site.Sitemap)
	mux.HandleFunc("GET /legal/{page}", site.Legal)

	// Listings
	mux.HandleFunc("GET /p/{slug}", public.ListingPage)
	mux.HandleFunc("GET /agents/{username}", public.AgentPage)
	mux.HandleFunc("GET /api/public/properties/{slug}", public.PropertyJSON)
	mux.HandleFunc("GET /api/agents/{username}", agent.PublicProfile)
	mux.HandleFunc("GET /api/currencies", public.Currencies)
	mux.HandleFunc("GET /api/upload-tokens/validate/{token}", uploadToken.Validate)

	// Auth - Authentication flow (rate limited)
	rateLimiter := middleware.RateLimitAuth(app.Cfg.AuthRateLimit, app.Cfg.AuthRateLimitWindow)

	mux.HandleFunc("GET /api/csrf", auth.CSRFToken)
	mux.HandleFunc("GET /auth/google", rateLimiter(auth.GoogleAuth))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))
	mux.HandleFunc("GET /auth/magic-link/{token}", auth.VerifyMagicLink)
	mux.HandleFunc("POST /auth/magic-link", rateLimiter(auth.SendMagicLink))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	mux.HandleFunc("POST /auth/password", middleware.RequireAgent(auth.SetPassword))
	mux.HandleFunc("GET /api/me", middleware.RequireAgent(auth.Me))

	// Agent
	mux.HandleFunc("GET /api/agent", middleware.RequireAgent(agent.Get))
	mux.HandleFunc("PATCH /api/agent", middleware.RequireAgent(agent.Update))
	mux.HandleFunc("POST /api/agent/logo", middleware.RequireAgent(agent.UploadLogo))
	mux.HandleFunc("DELETE /api/agent", middleware.RequireAgent(agent.Delete))

	// Properties (create and photo upload also accept an upload token)
	mux.HandleFunc("GET /api/properties", middleware.RequireAgent(property.List))
	mux.HandleFunc("POST /api/properties", property.Create)
	mux.HandleFunc("GET /api/properties/export.csv", middleware.RequireAgent(property.ExportCSV))
	mux.HandleFunc("GET /api/properties/{id}", middleware.RequireAgent(property.Get))
	mux.HandleFunc("PUT /api/properties/{id}", middleware.RequireAgent(property.Update))
	mux.HandleFunc("DELETE /api/properties/{id}", middleware.RequireAgent(property.Delete))
	mux.HandleFunc("PATCH /api/properties/{id}/status", middleware.RequireAgent(property.UpdateStatus))
	mux.HandleFunc("POST /api/properties/{id}/photos", property.AddPhotos)
	mux.HandleFunc("DELETE /api/properties/{id}/photos", middleware.RequireAgent(property.RemovePhoto))
	mux.HandleFunc("PUT /api/properties/{id}/photos/order", middleware.RequireAgent(property.ReorderPhotos))
	mux.HandleFunc("POST /api/properties/{id}/video", middleware.RequireAgent(property.UploadVideo))
	mux.HandleFunc("GET /api/properties/{id}/video", middleware.RequireAgent(property.VideoStatus))
	mux.HandleFunc("POST /api/properties/{id}/audio", middleware.RequireAgent(property.UploadAudio))
	mux.HandleFunc("POST /api/properties/{id}/facebook", middleware.RequireAgent(facebook.PublishProperty))

	// Custom fields
	mux.HandleFunc("GET /api/custom-fields", middleware.RequireAgent(customField.List))
	mux.HandleFunc("POST /api/custom-fields", middleware.RequireAgent(customField.Create))
	mux.HandleFunc("PUT /api/custom-fields/order", middleware.RequireAgent(customField.Reorder))
	mux.HandleFunc("PUT /api/custom-fields/{id}", middleware.RequireAgent(customField.Update))
	mux.HandleFunc("DELETE /api/custom-fields/{id}", middleware.RequireAgent(customField.Delete))

	// Upload tokens
	mux.HandleFunc("GET /api/upload-tokens", middleware.RequireAgent(uploadToken.List))
	mux.HandleFunc("POST /api/upload-tokens", middleware.RequireAgent(uploadToken.Create))
	mux.HandleFunc("DELETE /api/upload-tokens/{id}", middleware.RequireAgent(uploadToken.Deactivate))

	// AI
	mux.HandleFunc("POST /api/ai/description", middleware.RequireAgent(ai.Description))
	mux.HandleFunc("POST /api/ai/marketing-image", middleware.RequireAgent(ai.MarketingImage))

	// Facebook
	mux.HandleFunc("GET /api/facebook/connect", middleware.RequireAgent(facebook.Connect))
	mux.HandleFunc("GET /api/facebook/callback", middleware.RequireAgent(facebook.Callback))
	mux.HandleFunc("GET /api/facebook/pages", middleware.RequireAgent(facebook.Pages))
	mux.HandleFunc("POST /api/facebook/page", middleware.RequireAgent(facebook.SelectPage))
	mux.HandleFunc("DELETE /api/facebook", middleware.RequireAgent(facebook.Disconnect))

	// Billing
	mux.HandleFunc("POST /api/billing/checkout", middleware.RequireAgent(billing.CreateCheckout))
	mux.HandleFunc("GET /api/billing/portal", middleware.RequireAgent(billing.CustomerPortal))

	// Analytics
	mux.HandleFunc("GET /api/analytics", middleware.RequireAgent(analytics.Get))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	// Payment provider webhook (works with both Polar and Stripe)
	mux.HandleFunc("POST /webhooks/payment", billing.Webhook)

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", site.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // Config must be first (needed by SecurityHeaders for S3 origins)
		middleware.NonceMiddleware, // Generate CSP nonce for each request (must be before SecurityHeaders)
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.CSRFProtection, // Cookie sessions only
		middleware.AuthMiddleware(app.AuthService, app.SubscriptionService),
	)

	return handler
}
