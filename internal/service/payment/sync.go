package payment

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

// change is a provider event reduced to the fields a local subscription keeps.
// Zero values leave the stored field untouched.
type change struct {
	AgentID        string
	SubscriptionID string
	CustomerID     string
	Price          PlanPrice
	Status         string
	Amount         *int
	Currency       string
	PeriodEnd      *time.Time
}

// syncer applies provider events to the agent's subscription row.
type syncer struct {
	provider      string
	subscriptions *service.SubscriptionService
}

// find resolves the local subscription by provider subscription id, then
// customer id, then the agent id carried in checkout metadata.
func (s syncer) find(c change) (*model.Subscription, error) {
	lookups := []struct {
		key string
		get func(string) (*model.Subscription, error)
	}{
		{c.SubscriptionID, s.subscriptions.ByProviderSubscriptionID},
		{c.CustomerID, s.subscriptions.ByProviderCustomerID},
		{c.AgentID, s.subscriptions.Subscription},
	}

	for _, lookup := range lookups {
		if lookup.key == "" {
			continue
		}
		sub, err := lookup.get(lookup.key)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, err
		}
	}
	return nil, repository.ErrSubscriptionNotFound
}

// apply merges c into the matching subscription. Events for subscriptions we
// do not know are logged and acknowledged so the provider stops retrying.
func (s syncer) apply(event string, c change) error {
	sub, err := s.find(c)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		slog.Warn("payment webhook for unknown subscription, skipping", "provider", s.provider, "event_type", event, "subscription_id", c.SubscriptionID, "customer_id", c.CustomerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	sub.Provider = s.provider
	if c.CustomerID != "" {
		sub.ProviderCustomerID = &c.CustomerID
	}
	if c.SubscriptionID != "" {
		sub.ProviderSubscriptionID = &c.SubscriptionID
	}
	if c.Price.Plan != "" {
		sub.PlanID = c.Price.Plan
		interval := c.Price.Interval
		sub.Interval = &interval
	}
	if c.Status != "" {
		sub.Status = c.Status
	}
	if c.Amount != nil {
		sub.Amount = c.Amount
	}
	if c.Currency != "" {
		sub.Currency = c.Currency
	}
	if c.PeriodEnd != nil {
		sub.CurrentPeriodEnd = c.PeriodEnd
	}

	err = s.subscriptions.UpdateSubscription(sub)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	slog.Info("subscription synced", "provider", s.provider, "event_type", event, "agent_id", sub.AgentID, "plan_id", sub.PlanID, "status", sub.Status)
	return nil
}

// end downgrades the subscription immediately.
func (s syncer) end(event, subscriptionID string) error {
	sub, err := s.find(change{SubscriptionID: subscriptionID})
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		slog.Warn("payment webhook for unknown subscription, skipping", "provider", s.provider, "event_type", event, "subscription_id", subscriptionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	if sub.PlanID == model.SubscriptionPlanFree {
		return nil
	}

	err = s.subscriptions.DowngradeToFree(sub)
	if err != nil {
		return fmt.Errorf("failed to downgrade subscription: %w", err)
	}

	slog.Info("subscription ended, downgraded to free", "provider", s.provider, "event_type", event, "agent_id", sub.AgentID)
	return nil
}

// localStatus maps provider states onto active and cancelled. Other states,
// such as past_due, are stored as-is.
func localStatus(status string) string {
	switch status {
	case "active", "trialing":
		return model.SubscriptionStatusActive
	case "canceled", "incomplete_expired", "unpaid":
		return model.SubscriptionStatusCancelled
	default:
		return status
	}
}
