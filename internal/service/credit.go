package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

var ErrInsufficientCredits = errors.New("not enough AI credits left")

// Credit costs per AI operation.
const (
	CreditCostDescription    = 1
	CreditCostMarketingImage = 3
	CreditCostTranscription  = 1
)

type CreditService struct {
	agentRepo           repository.AgentRepository
	subscriptionService *SubscriptionService
	now                 func() time.Time
}

func NewCreditService(agentRepo repository.AgentRepository, subscriptionService *SubscriptionService) *CreditService {
	return &CreditService{
		agentRepo:           agentRepo,
		subscriptionService: subscriptionService,
		now:                 time.Now,
	}
}

// Refresh starts a new monthly allowance when the last reset is a month old.
// Plan changes reset credits through SubscriptionService; this covers months
// without any billing event, such as on the free plan.
func (s *CreditService) Refresh(agent *model.Agent) error {
	now := s.now()
	if now.Before(agent.CreditsResetAt.AddDate(0, 1, 0)) {
		return nil
	}

	sub, err := s.subscriptionService.Subscription(agent.ID)
	if err != nil {
		return err
	}

	credits := sub.Limits().AICredits
	err = s.agentRepo.ResetCredits(agent.ID, credits, now)
	if err != nil {
		return fmt.Errorf("failed to reset credits: %w", err)
	}

	agent.AICredits = credits
	agent.AICreditsUsed = 0
	agent.CreditsResetAt = now
	slog.Info("monthly ai credits reset", "agent_id", agent.ID, "credits", credits)
	return nil
}

// Check fails with ErrInsufficientCredits when the agent cannot afford cost.
func (s *CreditService) Check(agentID string, cost int) error {
	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return err
	}

	err = s.Refresh(agent)
	if err != nil {
		return err
	}

	if agent.CreditsRemaining() < cost {
		return ErrInsufficientCredits
	}
	return nil
}

// Consume deducts cost after the paid operation succeeded.
func (s *CreditService) Consume(agentID string, cost int) error {
	ok, err := s.agentRepo.ConsumeCredits(agentID, cost)
	if err != nil {
		return fmt.Errorf("failed to consume credits: %w", err)
	}
	if !ok {
		return ErrInsufficientCredits
	}
	return nil
}
