package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// SubscriptionRepository stores one billing subscription per agent.
type SubscriptionRepository interface {
	Create(sub *model.Subscription) error
	ByAgentID(agentID string) (*model.Subscription, error)
	ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error)
	ByProviderCustomerID(providerCustomerID string) (*model.Subscription, error)
	Update(sub *model.Subscription) error
}

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *model.Subscription) error {
	_, err := r.db.Exec(`
		INSERT INTO subscriptions (id, agent_id, plan_id, status, provider, provider_customer_id,
			provider_subscription_id, current_period_end, amount, currency, interval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.AgentID, sub.PlanID, sub.Status, sub.Provider, sub.ProviderCustomerID,
		sub.ProviderSubscriptionID, sub.CurrentPeriodEnd, sub.Amount, sub.Currency, sub.Interval, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (r *subscriptionRepository) ByAgentID(agentID string) (*model.Subscription, error) {
	return r.by("agent_id", agentID)
}

func (r *subscriptionRepository) ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error) {
	return r.by("provider_subscription_id", providerSubID)
}

func (r *subscriptionRepository) ByProviderCustomerID(providerCustomerID string) (*model.Subscription, error) {
	return r.by("provider_customer_id", providerCustomerID)
}

// by loads the subscription whose column equals value. column is never user input.
func (r *subscriptionRepository) by(column, value string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.Get(sub, fmt.Sprintf(`SELECT * FROM subscriptions WHERE %s = $1 LIMIT 1`, column), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepository) Update(sub *model.Subscription) error {
	result, err := r.db.Exec(`
		UPDATE subscriptions
		SET plan_id = $1, status = $2, provider = $3, provider_customer_id = $4, provider_subscription_id = $5,
			current_period_end = $6, amount = $7, currency = $8, interval = $9, updated_at = $10
		WHERE id = $11`,
		sub.PlanID, sub.Status, sub.Provider, sub.ProviderCustomerID, sub.ProviderSubscriptionID,
		sub.CurrentPeriodEnd, sub.Amount, sub.Currency, sub.Interval, sub.UpdatedAt, sub.ID,
	)
	return expectRow(result, err, ErrSubscriptionNotFound)
}
