package service

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

const (
	topPropertiesCount = 5
	analyticsMonths    = 6
)

// viewBuckets are upper-inclusive view thresholds; the last bucket is open.
var viewBuckets = []struct {
	Label string
	Max   int
}{
	{"0", 0},
	{"1-10", 10},
	{"11-50", 50},
	{"51-200", 200},
	{"201+", -1},
}

type Analytics struct {
	TotalProperties int                  `json:"total_properties"`
	ByStatus        map[string]int       `json:"by_status"`
	ByPropertyType  map[string]int       `json:"by_property_type"`
	ByListingType   map[string]int       `json:"by_listing_type"`
	TotalViews      int                  `json:"total_views"`
	AverageViews    float64              `json:"average_views"`
	PriceStats      []CurrencyPriceStats `json:"price_stats"`
	ViewBuckets     []BucketCount        `json:"view_buckets"`
	TopByViews      []TopProperty        `json:"top_by_views"`
	CreatedPerMonth []MonthCount         `json:"created_per_month"`
}

type CurrencyPriceStats struct {
	Currency string  `json:"currency"`
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Average  float64 `json:"average"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type TopProperty struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
	Views  int    `json:"views"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type AnalyticsService struct {
	propertyRepo repository.PropertyRepository
	now          func() time.Time
}

func NewAnalyticsService(propertyRepo repository.PropertyRepository) *AnalyticsService {
	return &AnalyticsService{propertyRepo: propertyRepo, now: time.Now}
}

func (s *AnalyticsService) ForAgent(agentID string) (*Analytics, error) {
	properties, err := s.propertyRepo.AllByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return computeAnalytics(properties, s.now()), nil
}

func computeAnalytics(properties []*model.Property, now time.Time) *Analytics {
	a := &Analytics{
		TotalProperties: len(properties),
		ByStatus:        zeroCounts(model.PropertyStatuses),
		ByPropertyType:  zeroCounts(model.PropertyTypes),
		ByListingType:   zeroCounts(model.ListingTypes),
		PriceStats:      []CurrencyPriceStats{},
		TopByViews:      []TopProperty{},
	}

	for status, n := range lo.CountValuesBy(properties, func(p *model.Property) string { return p.Status }) {
		a.ByStatus[status] = n
	}
	for pt, n := range lo.CountValuesBy(properties, func(p *model.Property) string { return p.PropertyType }) {
		a.ByPropertyType[pt] = n
	}
	for lt, n := range lo.CountValuesBy(properties, func(p *model.Property) string { return p.ListingType }) {
		a.ByListingType[lt] = n
	}

	a.TotalViews = lo.SumBy(properties, func(p *model.Property) int { return p.Views })
	if len(properties) > 0 {
		a.AverageViews = float64(a.TotalViews) / float64(len(properties))
	}

	for currency, group := range lo.GroupBy(properties, func(p *model.Property) string { return p.Currency }) {
		prices := lo.Map(group, func(p *model.Property, _ int) float64 { return p.Price })
		sum := lo.Sum(prices)
		a.PriceStats = append(a.PriceStats, CurrencyPriceStats{
			Currency: currency,
			Count:    len(prices),
			Sum:      sum,
			Average:  sum / float64(len(prices)),
			Min:      slices.Min(prices),
			Max:      slices.Max(prices),
		})
	}
	sort.Slice(a.PriceStats, func(i, j int) bool { return a.PriceStats[i].Currency < a.PriceStats[j].Currency })

	a.ViewBuckets = make([]BucketCount, len(viewBuckets))
	for i, b := range viewBuckets {
		a.ViewBuckets[i].Label = b.Label
	}
	for _, p := range properties {
		a.ViewBuckets[viewBucket(p.Views)].Count++
	}

	top := slices.Clone(properties)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Views > top[j].Views })
	for _, p := range top[:min(topPropertiesCount, len(top))] {
		a.TopByViews = append(a.TopByViews, TopProperty{ID: p.ID, Title: p.Title, Slug: p.Slug, Status: p.Status, Views: p.Views})
	}

	a.CreatedPerMonth = createdPerMonth(properties, now)
	return a
}

func zeroCounts(keys []string) map[string]int {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = 0
	}
	return counts
}

func viewBucket(views int) int {
	for i, b := range viewBuckets {
		if b.Max < 0 || views <= b.Max {
			return i
		}
	}
	return len(viewBuckets) - 1
}

// createdPerMonth counts listings for the current month and the five before
// it, oldest first.
func createdPerMonth(properties []*model.Property, now time.Time) []MonthCount {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(analyticsMonths - 1), 0)

	months := make([]MonthCount, analyticsMonths)
	index := make(map[string]int, analyticsMonths)
	for i := range months {
		label := start.AddDate(0, i, 0).Format("2006-01")
		months[i].Month = label
		index[label] = i
	}

	for _, p := range properties {
		i, ok := index[p.CreatedAt.UTC().Format("2006-01")]
		if ok {
			months[i].Count++
		}
	}
	return months
}
