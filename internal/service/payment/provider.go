package payment

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service"
)

// Provider sells plan upgrades and keeps local subscriptions in sync through webhooks.
type Provider interface {
	// CreateCheckoutURL returns a hosted checkout for plan billed every interval.
	CreateCheckoutURL(agentID, planID, interval, customerEmail, customerName string) (string, error)
	// CustomerPortalURL returns the provider's self-service billing page. Free agents have none.
	CustomerPortalURL(agentID string) (string, error)
	// HandleWebhook verifies and applies one provider event.
	HandleWebhook(payload []byte, headers http.Header) error
	Name() string
}

// NewProvider builds the provider selected by PAYMENT_PROVIDER.
func NewProvider(cfg *config.Config, subscriptions *service.SubscriptionService) (Provider, error) {
	var required map[string]string
	switch cfg.PaymentProvider {
	case model.ProviderPolar:
		required = map[string]string{"POLAR_API_KEY": cfg.PolarAPIKey}
	case model.ProviderStripe:
		required = map[string]string{"STRIPE_SECRET_KEY": cfg.StripeSecretKey, "STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret}
	default:
		return nil, fmt.Errorf("unknown payment provider: %s (supported: polar, stripe)", cfg.PaymentProvider)
	}

	for name, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%s is required when using the %s provider", name, cfg.PaymentProvider)
		}
	}

	slog.Info("initializing payment provider", "provider", cfg.PaymentProvider)
	if cfg.PaymentProvider == model.ProviderStripe {
		return NewStripeProvider(cfg, subscriptions), nil
	}
	return NewPolarProvider(cfg, subscriptions), nil
}
