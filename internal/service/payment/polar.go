package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	polargo "github.com/polarsource/polar-go"
	"github.com/polarsource/polar-go/models/components"
	"github.com/polarsource/polar-go/models/operations"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service"
)

type PolarProvider struct {
	appURL        string
	webhookSecret string
	catalog       Catalog
	subscriptions *service.SubscriptionService
	sync          syncer
	client        *polargo.Polar
}

func NewPolarProvider(cfg *config.Config, subscriptionService *service.SubscriptionService) *PolarProvider {
	server := polargo.ServerProduction
	if cfg.PolarSandboxMode {
		server = polargo.ServerSandbox
	}
	slog.Info("polar provider initialized", "sandbox", cfg.PolarSandboxMode, "app_env", cfg.AppEnv)

	return &PolarProvider{
		appURL:        cfg.AppURL,
		webhookSecret: cfg.PolarWebhookSecret,
		catalog:       PolarCatalog(cfg),
		subscriptions: subscriptionService,
		sync:          syncer{provider: model.ProviderPolar, subscriptions: subscriptionService},
		client: polargo.New(
			polargo.WithSecurity(cfg.PolarAPIKey),
			polargo.WithServer(server),
		),
	}
}

func (p *PolarProvider) Name() string {
	return model.ProviderPolar
}

func (p *PolarProvider) CreateCheckoutURL(agentID, planID, interval, customerEmail, customerName string) (string, error) {
	sub, err := p.subscriptions.Subscription(agentID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}

	productID := p.catalog.ID(planID, interval)
	if productID == "" {
		return "", fmt.Errorf("no product configured for plan: %s (%s)", planID, interval)
	}

	billingURL := p.appURL + "/app/settings/billing"
	res, err := p.client.Checkouts.Create(context.Background(), components.CheckoutCreate{
		Products:           []string{productID},
		SuccessURL:         polargo.String(billingURL),
		ReturnURL:          polargo.String(billingURL),
		CustomerEmail:      polargo.String(customerEmail),
		CustomerName:       polargo.String(customerName),
		AllowDiscountCodes: polargo.Bool(true),
		Metadata: map[string]components.CheckoutCreateMetadata{
			"agent_id":        components.CreateCheckoutCreateMetadataStr(agentID),
			"subscription_id": components.CreateCheckoutCreateMetadataStr(sub.ID),
			"plan_id":         components.CreateCheckoutCreateMetadataStr(planID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout: %w", err)
	}
	if res == nil || res.Checkout == nil {
		return "", fmt.Errorf("checkout response is nil")
	}

	slog.Info("polar checkout created", "agent_id", agentID, "plan_id", planID, "interval", interval, "checkout_id", res.Checkout.ID)
	return res.Checkout.URL, nil
}

func (p *PolarProvider) CustomerPortalURL(agentID string) (string, error) {
	sub, err := p.subscriptions.Subscription(agentID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}

	if sub.ProviderCustomerID == nil || *sub.ProviderCustomerID == "" {
		return "", fmt.Errorf("no customer portal available for free subscriptions")
	}

	res, err := p.client.CustomerSessions.Create(context.Background(),
		operations.CreateCustomerSessionsCreateCustomerSessionCreateCustomerSessionCustomerIDCreate(
			components.CustomerSessionCustomerIDCreate{
				CustomerID: *sub.ProviderCustomerID,
				ReturnURL:  polargo.String(p.appURL + "/app/settings/billing"),
			},
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create customer portal session: %w", err)
	}
	if res == nil || res.CustomerSession == nil {
		return "", fmt.Errorf("customer portal response is nil")
	}

	slog.Info("polar customer portal session created", "agent_id", agentID)
	return res.CustomerSession.CustomerPortalURL, nil
}

// polarSubscription is the subset of Polar's subscription payload we sync.
type polarSubscription struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customer_id"`
	ProductID         string         `json:"product_id"`
	Amount            *int           `json:"amount"`
	Currency          string         `json:"currency"`
	Status            string         `json:"status"`
	CancelAtPeriodEnd bool           `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time     `json:"current_period_end"`
	EndedAt           *time.Time     `json:"ended_at"`
	Metadata          map[string]any `json:"metadata"`
}

func (p *PolarProvider) HandleWebhook(payload []byte, headers http.Header) error {
	if p.webhookSecret == "" {
		slog.Warn("polar no webhook secret configured, skipping signature verification")
	} else {
		wh, err := standardwebhooks.NewWebhookRaw([]byte(p.webhookSecret))
		if err != nil {
			return fmt.Errorf("failed to create webhook verifier: %w", err)
		}
		err = wh.Verify(payload, headers)
		if err != nil {
			return fmt.Errorf("invalid webhook signature: %w", err)
		}
	}

	var event struct {
		Type string            `json:"type"`
		Data polarSubscription `json:"data"`
	}
	err := json.Unmarshal(payload, &event)
	if err != nil {
		return fmt.Errorf("failed to parse webhook: %w", err)
	}

	slog.Info("polar webhook received", "event_type", event.Type)

	switch event.Type {
	case "subscription.created", "subscription.updated", "subscription.uncanceled":
		if event.Data.EndedAt != nil && event.Data.EndedAt.Before(time.Now()) {
			return p.sync.end(event.Type, event.Data.ID)
		}
		return p.sync.apply(event.Type, p.subscriptionChange(&event.Data))

	case "subscription.canceled":
		// Access continues until current_period_end
		c := p.subscriptionChange(&event.Data)
		c.Status = model.SubscriptionStatusCancelled
		return p.sync.apply(event.Type, c)

	case "subscription.revoked":
		return p.sync.end(event.Type, event.Data.ID)

	default:
		slog.Debug("polar webhook event ignored", "event_type", event.Type)
		return nil
	}
}

func (p *PolarProvider) subscriptionChange(sub *polarSubscription) change {
	c := change{
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		Status:         localStatus(sub.Status),
		Amount:         sub.Amount,
		Currency:       sub.Currency,
		PeriodEnd:      sub.CurrentPeriodEnd,
	}
	if agentID, ok := sub.Metadata["agent_id"].(string); ok {
		c.AgentID = agentID
	}
	if sub.CancelAtPeriodEnd {
		c.Status = model.SubscriptionStatusCancelled
	}
	if price, ok := p.catalog.Lookup(sub.ProductID); ok {
		c.Price = price
	}
	return c
}
