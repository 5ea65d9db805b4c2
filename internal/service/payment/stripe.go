package payment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service"
)

type StripeProvider struct {
	appURL        string
	webhookSecret string
	catalog       Catalog
	subscriptions *service.SubscriptionService
	sync          syncer
}

func NewStripeProvider(cfg *config.Config, subscriptionService *service.SubscriptionService) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{
		appURL:        cfg.AppURL,
		webhookSecret: cfg.StripeWebhookSecret,
		catalog:       StripeCatalog(cfg),
		subscriptions: subscriptionService,
		sync:          syncer{provider: model.ProviderStripe, subscriptions: subscriptionService},
	}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

// CreateCheckoutURL starts a subscription checkout. The agent id travels in
// both the session and the subscription metadata so webhooks can match the
// agent whichever event arrives first.
func (s *StripeProvider) CreateCheckoutURL(agentID, planID, interval, customerEmail, customerName string) (string, error) {
	sub, err := s.subscriptions.Subscription(agentID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}

	priceID := s.catalog.ID(planID, interval)
	if priceID == "" {
		return "", fmt.Errorf("no price configured for plan: %s (%s)", planID, interval)
	}

	metadata := map[string]string{
		"agent_id":        agentID,
		"subscription_id": sub.ID,
		"plan_id":         planID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.appURL + "/app/settings/billing?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.appURL + "/app/settings/billing"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
		AllowPromotionCodes: stripe.Bool(true),
	}
	if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID != "" {
		params.Customer = stripe.String(*sub.ProviderCustomerID)
	} else {
		params.CustomerEmail = stripe.String(customerEmail)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout created", "agent_id", agentID, "plan_id", planID, "interval", interval, "session_id", sess.ID)
	return sess.URL, nil
}

func (s *StripeProvider) CustomerPortalURL(agentID string) (string, error) {
	sub, err := s.subscriptions.Subscription(agentID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}

	if sub.ProviderCustomerID == nil || *sub.ProviderCustomerID == "" {
		return "", fmt.Errorf("no customer portal available for free subscriptions")
	}

	portalSession, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*sub.ProviderCustomerID),
		ReturnURL: stripe.String(s.appURL + "/app/settings/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create customer portal session: %w", err)
	}

	slog.Info("stripe customer portal session created", "agent_id", agentID)
	return portalSession.URL, nil
}

func (s *StripeProvider) HandleWebhook(payload []byte, headers http.Header) error {
	// API versions are backwards compatible for the fields read here
	event, err := webhook.ConstructEventWithOptions(
		payload,
		headers.Get("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		err = json.Unmarshal(event.Data.Raw, &session)
		if err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return s.sync.apply(string(event.Type), change{
			AgentID:        session.Metadata["agent_id"],
			CustomerID:     customerID(session.Customer),
			SubscriptionID: subscriptionID(session.Subscription),
		})

	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		var subscription stripe.Subscription
		err = json.Unmarshal(event.Data.Raw, &subscription)
		if err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.sync.apply(string(event.Type), s.subscriptionChange(&subscription))

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var subscription stripe.Subscription
		err = json.Unmarshal(event.Data.Raw, &subscription)
		if err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		return s.sync.end(string(event.Type), subscription.ID)

	case stripe.EventTypeInvoicePaymentSucceeded:
		var invoice stripe.Invoice
		err = json.Unmarshal(event.Data.Raw, &invoice)
		if err != nil {
			return fmt.Errorf("failed to parse invoice: %w", err)
		}
		id := subscriptionID(invoice.Subscription)
		if id == "" {
			return nil
		}
		return s.sync.apply(string(event.Type), change{SubscriptionID: id, Status: model.SubscriptionStatusActive})

	case stripe.EventTypeInvoicePaymentFailed:
		// Stripe retries the charge and sends customer.subscription.deleted when it gives up
		slog.Warn("stripe invoice payment failed", "event_id", event.ID)
		return nil

	default:
		slog.Debug("stripe webhook event ignored", "event_type", event.Type)
		return nil
	}
}

// subscriptionChange reads plan, price and period from the first subscription item.
func (s *StripeProvider) subscriptionChange(subscription *stripe.Subscription) change {
	c := change{
		AgentID:        subscription.Metadata["agent_id"],
		SubscriptionID: subscription.ID,
		CustomerID:     customerID(subscription.Customer),
		Status:         localStatus(string(subscription.Status)),
	}
	if subscription.CancelAtPeriodEnd {
		c.Status = model.SubscriptionStatusCancelled
	}
	if subscription.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(subscription.CurrentPeriodEnd, 0)
		c.PeriodEnd = &periodEnd
	}

	if subscription.Items != nil && len(subscription.Items.Data) > 0 && subscription.Items.Data[0].Price != nil {
		price := subscription.Items.Data[0].Price
		if planPrice, ok := s.catalog.Lookup(price.ID); ok {
			c.Price = planPrice
		}
		amount := int(price.UnitAmount)
		c.Amount = &amount
		c.Currency = string(price.Currency)
	}
	return c
}

func customerID(customer *stripe.Customer) string {
	if customer == nil {
		return ""
	}
	return customer.ID
}

func subscriptionID(subscription *stripe.Subscription) string {
	if subscription == nil {
		return ""
	}
	return subscription.ID
}
