package payment

import (
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/model"
)

// PlanPrice identifies one purchasable plan variant.
type PlanPrice struct {
	Plan     string
	Interval string
}

// Catalog maps plan variants to the provider's price or product ids.
type Catalog map[PlanPrice]string

// ID returns the provider id for plan and interval, or "" when not configured.
func (c Catalog) ID(plan, interval string) string {
	return c[PlanPrice{Plan: plan, Interval: interval}]
}

// Lookup resolves a provider id back to its plan variant.
func (c Catalog) Lookup(id string) (PlanPrice, bool) {
	if id == "" {
		return PlanPrice{}, false
	}
	for price, priceID := range c {
		if priceID == id {
			return price, true
		}
	}
	return PlanPrice{}, false
}

func newCatalog(proMonthly, proYearly, agencyMonthly, agencyYearly string) Catalog {
	return Catalog{
		{model.SubscriptionPlanPro, model.SubscriptionIntervalMonthly}:    proMonthly,
		{model.SubscriptionPlanPro, model.SubscriptionIntervalYearly}:     proYearly,
		{model.SubscriptionPlanAgency, model.SubscriptionIntervalMonthly}: agencyMonthly,
		{model.SubscriptionPlanAgency, model.SubscriptionIntervalYearly}:  agencyYearly,
	}
}

func StripeCatalog(cfg *config.Config) Catalog {
	return newCatalog(cfg.StripePriceIDProMonthly, cfg.StripePriceIDProYearly, cfg.StripePriceIDAgencyMonthly, cfg.StripePriceIDAgencyYearly)
}

func PolarCatalog(cfg *config.Config) Catalog {
	return newCatalog(cfg.PolarProductIDProMonthly, cfg.PolarProductIDProYearly, cfg.PolarProductIDAgencyMonthly, cfg.PolarProductIDAgencyYearly)
}
