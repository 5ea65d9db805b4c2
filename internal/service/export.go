package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

var exportColumns = []string{
	"id", "slug", "title", "status", "property_type", "listing_type", "price", "currency",
	"bedrooms", "bathrooms", "area_m2", "address", "city", "country", "latitude", "longitude",
	"views", "created_via", "photos", "video_url", "public_url", "created_at", "updated_at",
}

type ExportService struct {
	propertyRepo        repository.PropertyRepository
	customFieldRepo     repository.CustomFieldRepository
	subscriptionService *SubscriptionService
	appURL              string
}

func NewExportService(
	propertyRepo repository.PropertyRepository,
	customFieldRepo repository.CustomFieldRepository,
	subscriptionService *SubscriptionService,
	appURL string,
) *ExportService {
	return &ExportService{
		propertyRepo:        propertyRepo,
		customFieldRepo:     customFieldRepo,
		subscriptionService: subscriptionService,
		appURL:              strings.TrimRight(appURL, "/"),
	}
}

// CanExport fails with ErrFeatureNotAvailable unless the plan includes exports.
func (s *ExportService) CanExport(agentID string) error {
	sub, err := s.subscriptionService.Subscription(agentID)
	if err != nil {
		return err
	}
	if !sub.HasFeature(model.FeatureExport) {
		return ErrFeatureNotAvailable
	}
	return nil
}

// WriteCSV writes all of the agent's properties. Custom fields become
// cf_<key> columns in the agent's field order.
func (s *ExportService) WriteCSV(w io.Writer, agentID string) error {
	properties, err := s.propertyRepo.AllByAgent(agentID)
	if err != nil {
		return fmt.Errorf("failed to list properties: %w", err)
	}

	fields, err := s.customFieldRepo.List(agentID, "", "")
	if err != nil {
		return fmt.Errorf("failed to list custom fields: %w", err)
	}

	var keys []string
	seen := map[string]bool{}
	for _, f := range fields {
		if !seen[f.Key] {
			seen[f.Key] = true
			keys = append(keys, f.Key)
		}
	}

	cw := csv.NewWriter(w)

	header := append([]string{}, exportColumns...)
	for _, key := range keys {
		header = append(header, "cf_"+key)
	}
	err = cw.Write(header)
	if err != nil {
		return err
	}

	for _, p := range properties {
		row := []string{
			p.ID,
			p.Slug,
			p.Title,
			p.Status,
			p.PropertyType,
			p.ListingType,
			formatNumber(p.Price),
			p.Currency,
			strconv.Itoa(p.Bedrooms),
			strconv.Itoa(p.Bathrooms),
			formatNumber(p.AreaM2),
			p.Address,
			p.City,
			p.Country,
			optionalNumber(p.Latitude),
			optionalNumber(p.Longitude),
			strconv.Itoa(p.Views),
			p.CreatedVia,
			strings.Join(p.Photos, " "),
			p.VideoPlaybackURL,
			s.appURL + "/p/" + p.Slug,
			p.CreatedAt.UTC().Format(time.RFC3339),
			p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		for _, key := range keys {
			row = append(row, csvValue(p.CustomFields[key]))
		}

		err = cw.Write(row)
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func optionalNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return formatNumber(*f)
}

func csvValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return formatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
