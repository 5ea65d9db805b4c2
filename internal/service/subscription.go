package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

type SubscriptionService struct {
	repo      repository.SubscriptionRepository
	agentRepo repository.AgentRepository
}

func NewSubscriptionService(repo repository.SubscriptionRepository, agentRepo repository.AgentRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo, agentRepo: agentRepo}
}

func (s *SubscriptionService) CreateFreeSubscription(agentID string) error {
	now := time.Now()
	subscription := &model.Subscription{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		PlanID:    model.SubscriptionPlanFree,
		Status:    model.SubscriptionStatusActive,
		Currency:  "usd",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.repo.Create(subscription)
	if err != nil {
		return fmt.Errorf("failed to create free subscription: %w", err)
	}

	return nil
}

func (s *SubscriptionService) Subscription(agentID string) (*model.Subscription, error) {
	sub, err := s.repo.ByAgentID(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error) {
	sub, err := s.repo.ByProviderSubscriptionID(providerSubID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by provider ID: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) ByProviderCustomerID(providerCustomerID string) (*model.Subscription, error) {
	sub, err := s.repo.ByProviderCustomerID(providerCustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by customer ID: %w", err)
	}

	return sub, nil
}

// UpdateSubscription persists sub. When the effective plan changes or a new
// billing period starts, the agent's AI credits are reset to the plan allowance.
func (s *SubscriptionService) UpdateSubscription(sub *model.Subscription) error {
	previous, err := s.repo.ByAgentID(sub.AgentID)
	if err != nil {
		return fmt.Errorf("failed to load current subscription: %w", err)
	}
	planChanged := previous.EffectivePlan() != sub.EffectivePlan()
	renewed := sub.CurrentPeriodEnd != nil &&
		(previous.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.After(*previous.CurrentPeriodEnd))

	sub.UpdatedAt = time.Now()

	err = s.repo.Update(sub)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if planChanged || renewed {
		credits := sub.Limits().AICredits
		err = s.agentRepo.ResetCredits(sub.AgentID, credits, sub.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to reset credits: %w", err)
		}
		slog.Info("ai credits reset", "agent_id", sub.AgentID, "plan_id", sub.EffectivePlan(), "credits", credits)
	}

	return nil
}

func (s *SubscriptionService) DowngradeToFree(sub *model.Subscription) error {
	sub.PlanID = model.SubscriptionPlanFree
	sub.Status = model.SubscriptionStatusActive
	sub.ProviderSubscriptionID = nil
	sub.CurrentPeriodEnd = nil
	sub.Amount = nil
	sub.Currency = ""
	sub.Interval = nil

	return s.UpdateSubscription(sub)
}
