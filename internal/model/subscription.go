package model

import (
	"fmt"
	"slices"
	"time"
)

type Subscription struct {
	ID                     string     `db:"id" json:"-"`
	AgentID                string     `db:"agent_id" json:"-"`
	PlanID                 string     `db:"plan_id" json:"plan_id"`
	Status                 string     `db:"status" json:"status"`
	Provider               string     `db:"provider" json:"provider"`
	ProviderCustomerID     *string    `db:"provider_customer_id" json:"-"`
	ProviderSubscriptionID *string    `db:"provider_subscription_id" json:"-"`
	CurrentPeriodEnd       *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	Amount                 *int       `db:"amount" json:"amount,omitempty"`
	Currency               string     `db:"currency" json:"currency"`
	Interval               *string    `db:"interval" json:"interval,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	ProviderPolar  = "polar"
	ProviderStripe = "stripe"
)

const (
	SubscriptionPlanFree   = "free"
	SubscriptionPlanPro    = "pro"
	SubscriptionPlanAgency = "agency"
)

const (
	SubscriptionIntervalMonthly = "monthly"
	SubscriptionIntervalYearly  = "yearly"
)

const (
	FeatureExport          = "export"
	FeatureFacebook        = "facebook"
	FeaturePrioritySupport = "priority_support"
)

// Unlimited marks a plan limit without a cap.
const Unlimited = -1

type PlanLimits struct {
	Properties int      `json:"properties"`
	AICredits  int      `json:"ai_credits"`
	Features   []string `json:"features"`
}

var planLimits = map[string]PlanLimits{
	SubscriptionPlanFree: {
		Properties: 10,
		AICredits:  10,
		Features:   []string{},
	},
	SubscriptionPlanPro: {
		Properties: 100,
		AICredits:  200,
		Features:   []string{FeatureExport, FeatureFacebook},
	},
	SubscriptionPlanAgency: {
		Properties: Unlimited,
		AICredits:  1000,
		Features:   []string{FeatureExport, FeatureFacebook, FeaturePrioritySupport},
	},
}

// LimitsForPlan returns the limits of plan, falling back to the free plan.
func LimitsForPlan(plan string) PlanLimits {
	limits, ok := planLimits[plan]
	if !ok {
		return planLimits[SubscriptionPlanFree]
	}
	return limits
}

func IsPaidPlan(plan string) bool {
	return plan == SubscriptionPlanPro || plan == SubscriptionPlanAgency
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

func (s *Subscription) IsPaid() bool {
	return s.PlanID != SubscriptionPlanFree && s.IsActive()
}

// EffectivePlan is the plan whose limits apply right now. A cancelled
// subscription keeps its plan until the paid period ends, then falls back to free.
func (s *Subscription) EffectivePlan() string {
	if s == nil {
		return SubscriptionPlanFree
	}
	if s.IsActive() || (s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(time.Now())) {
		return s.PlanID
	}
	return SubscriptionPlanFree
}

func (s *Subscription) Limits() PlanLimits {
	return LimitsForPlan(s.EffectivePlan())
}

// PropertyLimit returns the maximum number of properties for this plan.
// Returns Unlimited when there is no cap.
func (s *Subscription) PropertyLimit() int {
	return s.Limits().Properties
}

func (s *Subscription) HasFeature(feature string) bool {
	return slices.Contains(s.Limits().Features, feature)
}

func (s *Subscription) FormatPrice() string {
	if s.Amount == nil || *s.Amount == 0 {
		return ""
	}

	currencySymbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
	}

	amount := float64(*s.Amount) / 100.0
	symbol := currencySymbols[s.Currency]
	if symbol == "" {
		symbol = "$"
	}

	interval := "month"
	if s.Interval != nil && *s.Interval == SubscriptionIntervalYearly {
		interval = "year"
	}

	return fmt.Sprintf("%s%.0f/%s", symbol, amount, interval)
}
