package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/model"
)

func TestExportNeedsFeature(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	assert.ErrorIs(t, e.export.CanExport(agent.ID), ErrFeatureNotAvailable)

	e.setPlan(t, agent.ID, model.SubscriptionPlanPro)
	assert.NoError(t, e.export.CanExport(agent.ID))
}

func TestWriteCSVAddsCustomFieldColumns(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	_, err := e.customFields.Create(agent.ID, houseSaleField("Pool", model.CustomFieldTypeBoolean))
	require.NoError(t, err)
	_, err = e.properties.Create(agent.ID, PropertyInput{
		Title:        "Villa, with pool",
		Price:        1250000.5,
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		CustomFields: map[string]any{"pool": true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.export.WriteCSV(&buf, agent.ID))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, "id", header[0])
	assert.Equal(t, "cf_pool", header[len(header)-1])

	row := rows[1]
	column := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}
	assert.Equal(t, "Villa, with pool", column("title"))
	assert.Equal(t, "1250000.5", column("price"))
	assert.Equal(t, "https://app.test/p/villa-with-pool", column("public_url"))
	assert.Equal(t, "true", column("cf_pool"))
}

func TestComputeAnalytics(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	properties := []*model.Property{
		{ID: "1", Title: "A", Status: model.PropertyStatusActive, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale, Price: 100, Currency: "USD", Views: 0, CreatedAt: now},
		{ID: "2", Title: "B", Status: model.PropertyStatusSold, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale, Price: 300, Currency: "USD", Views: 12, CreatedAt: now.AddDate(0, -1, 0)},
		{ID: "3", Title: "C", Status: model.PropertyStatusRented, PropertyType: model.PropertyTypeApartment, ListingType: model.ListingTypeRent, Price: 900, Currency: "EUR", Views: 250, CreatedAt: now.AddDate(-1, 0, 0)},
	}

	a := computeAnalytics(properties, now)

	assert.Equal(t, 3, a.TotalProperties)
	assert.Equal(t, 1, a.ByStatus[model.PropertyStatusSold])
	assert.Equal(t, 0, a.ByPropertyType[model.PropertyTypeLand], "every type is listed")
	assert.Equal(t, 2, a.ByListingType[model.ListingTypeSale])
	assert.Equal(t, 262, a.TotalViews)

	require.Len(t, a.PriceStats, 2)
	assert.Equal(t, CurrencyPriceStats{Currency: "EUR", Count: 1, Sum: 900, Average: 900, Min: 900, Max: 900}, a.PriceStats[0])
	assert.Equal(t, CurrencyPriceStats{Currency: "USD", Count: 2, Sum: 400, Average: 200, Min: 100, Max: 300}, a.PriceStats[1])

	assert.Equal(t, []BucketCount{{"0", 1}, {"1-10", 0}, {"11-50", 1}, {"51-200", 0}, {"201+", 1}}, a.ViewBuckets)
	assert.Equal(t, "3", a.TopByViews[0].ID)

	require.Len(t, a.CreatedPerMonth, analyticsMonths)
	assert.Equal(t, MonthCount{Month: "2026-01", Count: 0}, a.CreatedPerMonth[0])
	assert.Equal(t, MonthCount{Month: "2026-05", Count: 1}, a.CreatedPerMonth[4])
	assert.Equal(t, MonthCount{Month: "2026-06", Count: 1}, a.CreatedPerMonth[5])
}

func TestAnalyticsForAgentWithoutProperties(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	a, err := e.analytics.ForAgent(agent.ID)
	require.NoError(t, err)
	assert.Zero(t, a.TotalProperties)
	assert.Zero(t, a.AverageViews)
	assert.Empty(t, a.PriceStats)
	assert.Len(t, a.CreatedPerMonth, analyticsMonths)
}
