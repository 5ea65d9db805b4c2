package payment

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

const (
	stripeSecret = "whsec_test"
	polarSecret  = "polar-webhook-secret"
)

func testConfig() *config.Config {
	return &config.Config{
		AppURL:                      "https://app.test",
		AppEnv:                      "test",
		StripeSecretKey:             "sk_test",
		StripeWebhookSecret:         stripeSecret,
		StripePriceIDProMonthly:     "price_pro_m",
		StripePriceIDProYearly:      "price_pro_y",
		StripePriceIDAgencyMonthly:  "price_agency_m",
		StripePriceIDAgencyYearly:   "price_agency_y",
		PolarAPIKey:                 "polar_test",
		PolarWebhookSecret:          polarSecret,
		PolarSandboxMode:            true,
		PolarProductIDProMonthly:    "prod_pro_m",
		PolarProductIDProYearly:     "prod_pro_y",
		PolarProductIDAgencyMonthly: "prod_agency_m",
		PolarProductIDAgencyYearly:  "prod_agency_y",
	}
}

type env struct {
	agents        repository.AgentRepository
	subscriptions *service.SubscriptionService
	agentID       string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	subscriptions := service.NewSubscriptionService(repository.NewSubscriptionRepository(conn), agents)

	now := time.Now().UTC()
	agent := &model.Agent{
		ID:                uuid.NewString(),
		Email:             "billing@example.com",
		Username:          "billing",
		Locale:            model.DefaultLocale,
		WatermarkPosition: model.WatermarkBottomRight,
		WatermarkOpacity:  0.5,
		AICredits:         model.LimitsForPlan(model.SubscriptionPlanFree).AICredits,
		CreditsResetAt:    now.AddDate(0, 1, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, agents.Create(agent))
	require.NoError(t, subscriptions.CreateFreeSubscription(agent.ID))

	return &env{agents: agents, subscriptions: subscriptions, agentID: agent.ID}
}

func (e *env) subscription(t *testing.T) *model.Subscription {
	t.Helper()

	sub, err := e.subscriptions.Subscription(e.agentID)
	require.NoError(t, err)
	return sub
}

func (e *env) credits(t *testing.T) int {
	t.Helper()

	agent, err := e.agents.ByID(e.agentID)
	require.NoError(t, err)
	return agent.CreditsRemaining()
}

func TestCatalog(t *testing.T) {
	catalog := StripeCatalog(testConfig())

	assert.Equal(t, "price_pro_y", catalog.ID(model.SubscriptionPlanPro, model.SubscriptionIntervalYearly))
	assert.Empty(t, catalog.ID(model.SubscriptionPlanFree, model.SubscriptionIntervalMonthly))

	price, ok := catalog.Lookup("price_agency_m")
	require.True(t, ok)
	assert.Equal(t, PlanPrice{Plan: model.SubscriptionPlanAgency, Interval: model.SubscriptionIntervalMonthly}, price)

	_, ok = catalog.Lookup("price_unknown")
	assert.False(t, ok)

	_, ok = Catalog{{Plan: model.SubscriptionPlanPro, Interval: model.SubscriptionIntervalMonthly}: ""}.Lookup("")
	assert.False(t, ok, "unconfigured ids never match")
}

func TestLocalStatus(t *testing.T) {
	assert.Equal(t, model.SubscriptionStatusActive, localStatus("trialing"))
	assert.Equal(t, model.SubscriptionStatusCancelled, localStatus("canceled"))
	assert.Equal(t, model.SubscriptionStatusCancelled, localStatus("unpaid"))
	assert.Equal(t, "past_due", localStatus("past_due"))
}

func signedStripe(t *testing.T, payload string) http.Header {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    stripeSecret,
		Timestamp: time.Now(),
	})
	headers := http.Header{}
	headers.Set("Stripe-Signature", signed.Header)
	return headers
}

func stripeEvent(eventType, object string) string {
	return fmt.Sprintf(`{"id":"evt_%s","object":"event","api_version":"2024-09-30.acacia","type":%q,"data":{"object":%s}}`,
		uuid.NewString()[:8], eventType, object)
}

func stripeSubscription(agentID, status, priceID string, periodEnd time.Time, cancelAtPeriodEnd bool) string {
	return fmt.Sprintf(`{
		"id":"sub_1","object":"subscription","customer":"cus_1","status":%q,
		"cancel_at_period_end":%t,"current_period_end":%d,
		"metadata":{"agent_id":%q},
		"items":{"object":"list","data":[{"id":"si_1","object":"subscription_item","price":{"id":%q,"object":"price","unit_amount":2900,"currency":"usd"}}]}
	}`, status, cancelAtPeriodEnd, periodEnd.Unix(), agentID, priceID)
}

func TestStripeWebhook(t *testing.T) {
	e := newEnv(t)
	provider := NewStripeProvider(testConfig(), e.subscriptions)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)

	send := func(t *testing.T, payload string) {
		t.Helper()
		require.NoError(t, provider.HandleWebhook([]byte(payload), signedStripe(t, payload)))
	}

	t.Run("rejects bad signature", func(t *testing.T) {
		payload := stripeEvent("customer.subscription.created", stripeSubscription(e.agentID, "active", "price_pro_m", periodEnd, false))
		headers := http.Header{}
		headers.Set("Stripe-Signature", "t=1,v1=deadbeef")

		err := provider.HandleWebhook([]byte(payload), headers)
		assert.Error(t, err)
		assert.Equal(t, model.SubscriptionPlanFree, e.subscription(t).PlanID)
	})

	t.Run("checkout links customer", func(t *testing.T) {
		send(t, stripeEvent("checkout.session.completed",
			fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"agent_id":%q}}`, e.agentID)))

		sub := e.subscription(t)
		require.NotNil(t, sub.ProviderCustomerID)
		assert.Equal(t, "cus_1", *sub.ProviderCustomerID)
		require.NotNil(t, sub.ProviderSubscriptionID)
		assert.Equal(t, "sub_1", *sub.ProviderSubscriptionID)
		assert.Equal(t, model.ProviderStripe, sub.Provider)
		assert.Equal(t, model.SubscriptionPlanFree, sub.PlanID)
	})

	t.Run("subscription created upgrades plan", func(t *testing.T) {
		send(t, stripeEvent("customer.subscription.created", stripeSubscription(e.agentID, "active", "price_pro_m", periodEnd, false)))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionPlanPro, sub.PlanID)
		assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
		require.NotNil(t, sub.Interval)
		assert.Equal(t, model.SubscriptionIntervalMonthly, *sub.Interval)
		require.NotNil(t, sub.Amount)
		assert.Equal(t, 2900, *sub.Amount)
		require.NotNil(t, sub.CurrentPeriodEnd)
		assert.WithinDuration(t, periodEnd, *sub.CurrentPeriodEnd, time.Second)
		assert.Equal(t, model.LimitsForPlan(model.SubscriptionPlanPro).AICredits, e.credits(t))
	})

	t.Run("cancel at period end keeps plan", func(t *testing.T) {
		send(t, stripeEvent("customer.subscription.updated", stripeSubscription(e.agentID, "active", "price_pro_m", periodEnd, true)))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionStatusCancelled, sub.Status)
		assert.Equal(t, model.SubscriptionPlanPro, sub.EffectivePlan())
	})

	t.Run("invoice paid reactivates", func(t *testing.T) {
		send(t, stripeEvent("invoice.payment_succeeded", `{"id":"in_1","object":"invoice","subscription":"sub_1"}`))

		assert.Equal(t, model.SubscriptionStatusActive, e.subscription(t).Status)
	})

	t.Run("unknown subscription is acknowledged", func(t *testing.T) {
		send(t, stripeEvent("customer.subscription.updated",
			`{"id":"sub_other","object":"subscription","customer":"cus_other","status":"active"}`))

		assert.Equal(t, model.SubscriptionPlanPro, e.subscription(t).PlanID)
	})

	t.Run("deleted downgrades to free", func(t *testing.T) {
		send(t, stripeEvent("customer.subscription.deleted", stripeSubscription(e.agentID, "canceled", "price_pro_m", periodEnd, false)))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionPlanFree, sub.PlanID)
		assert.Nil(t, sub.ProviderSubscriptionID)
		assert.Nil(t, sub.CurrentPeriodEnd)
		assert.Equal(t, model.LimitsForPlan(model.SubscriptionPlanFree).AICredits, e.credits(t))
	})
}

func signedPolar(t *testing.T, payload string) http.Header {
	t.Helper()

	wh, err := standardwebhooks.NewWebhookRaw([]byte(polarSecret))
	require.NoError(t, err)

	id := "msg_" + uuid.NewString()
	now := time.Now()
	signature, err := wh.Sign(id, now, []byte(payload))
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("webhook-id", id)
	headers.Set("webhook-timestamp", strconv.FormatInt(now.Unix(), 10))
	headers.Set("webhook-signature", signature)
	return headers
}

func polarEvent(eventType, agentID, productID, status string, periodEnd time.Time, endedAt string) string {
	return fmt.Sprintf(`{"type":%q,"data":{
		"id":"polar_sub_1","customer_id":"polar_cus_1","product_id":%q,
		"amount":9900,"currency":"usd","status":%q,"cancel_at_period_end":false,
		"current_period_end":%q,"ended_at":%s,"metadata":{"agent_id":%q}
	}}`, eventType, productID, status, periodEnd.Format(time.RFC3339), endedAt, agentID)
}

func TestPolarWebhook(t *testing.T) {
	e := newEnv(t)
	provider := NewPolarProvider(testConfig(), e.subscriptions)
	periodEnd := time.Now().Add(365 * 24 * time.Hour).Truncate(time.Second)

	send := func(t *testing.T, payload string) {
		t.Helper()
		require.NoError(t, provider.HandleWebhook([]byte(payload), signedPolar(t, payload)))
	}

	t.Run("rejects unsigned payload", func(t *testing.T) {
		payload := polarEvent("subscription.created", e.agentID, "prod_agency_y", "active", periodEnd, "null")
		assert.Error(t, provider.HandleWebhook([]byte(payload), http.Header{}))
		assert.Equal(t, model.SubscriptionPlanFree, e.subscription(t).PlanID)
	})

	t.Run("created upgrades by agent metadata", func(t *testing.T) {
		send(t, polarEvent("subscription.created", e.agentID, "prod_agency_y", "active", periodEnd, "null"))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionPlanAgency, sub.PlanID)
		assert.Equal(t, model.ProviderPolar, sub.Provider)
		require.NotNil(t, sub.Interval)
		assert.Equal(t, model.SubscriptionIntervalYearly, *sub.Interval)
		require.NotNil(t, sub.ProviderCustomerID)
		assert.Equal(t, "polar_cus_1", *sub.ProviderCustomerID)
		assert.Equal(t, model.LimitsForPlan(model.SubscriptionPlanAgency).AICredits, e.credits(t))
	})

	t.Run("canceled keeps access until period end", func(t *testing.T) {
		send(t, polarEvent("subscription.canceled", e.agentID, "prod_agency_y", "active", periodEnd, "null"))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionStatusCancelled, sub.Status)
		assert.Equal(t, model.SubscriptionPlanAgency, sub.EffectivePlan())
	})

	t.Run("uncanceled reactivates", func(t *testing.T) {
		send(t, polarEvent("subscription.uncanceled", e.agentID, "prod_agency_y", "active", periodEnd, "null"))

		assert.Equal(t, model.SubscriptionStatusActive, e.subscription(t).Status)
	})

	t.Run("revoked downgrades to free", func(t *testing.T) {
		send(t, polarEvent("subscription.revoked", e.agentID, "prod_agency_y", "canceled", periodEnd, fmt.Sprintf("%q", time.Now().Add(-time.Minute).Format(time.RFC3339))))

		sub := e.subscription(t)
		assert.Equal(t, model.SubscriptionPlanFree, sub.PlanID)
		assert.Equal(t, model.LimitsForPlan(model.SubscriptionPlanFree).AICredits, e.credits(t))
	})
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig()

	cfg.PaymentProvider = model.ProviderStripe
	p, err := NewProvider(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderStripe, p.Name())

	cfg.PaymentProvider = model.ProviderPolar
	p, err = NewProvider(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderPolar, p.Name())

	cfg.PolarAPIKey = ""
	_, err = NewProvider(cfg, nil)
	assert.ErrorContains(t, err, "POLAR_API_KEY")

	cfg.PaymentProvider = "paddle"
	_, err = NewProvider(cfg, nil)
	assert.ErrorContains(t, err, "unknown payment provider")
}
