package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

var (
	ErrPropertyLimitReached = errors.New("property limit of your plan reached, upgrade to add more listings")
	ErrFeatureNotAvailable  = errors.New("this feature is not included in your plan")
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type PropertyService struct {
	propertyRepo        repository.PropertyRepository
	customFieldRepo     repository.CustomFieldRepository
	currencyRepo        repository.CurrencyRepository
	uploadTokenRepo     repository.UploadTokenRepository
	agentRepo           repository.AgentRepository
	subscriptionService *SubscriptionService
	fileService         *FileService
	emailService        *EmailService
	creditService       *CreditService
	videos              VideoPlatform
	ai                  AIProvider
}

func NewPropertyService(
	propertyRepo repository.PropertyRepository,
	customFieldRepo repository.CustomFieldRepository,
	currencyRepo repository.CurrencyRepository,
	uploadTokenRepo repository.UploadTokenRepository,
	agentRepo repository.AgentRepository,
	subscriptionService *SubscriptionService,
	fileService *FileService,
	emailService *EmailService,
	creditService *CreditService,
	videos VideoPlatform,
	ai AIProvider,
) *PropertyService {
	return &PropertyService{
		propertyRepo:        propertyRepo,
		customFieldRepo:     customFieldRepo,
		currencyRepo:        currencyRepo,
		uploadTokenRepo:     uploadTokenRepo,
		agentRepo:           agentRepo,
		subscriptionService: subscriptionService,
		fileService:         fileService,
		emailService:        emailService,
		creditService:       creditService,
		videos:              videos,
		ai:                  ai,
	}
}

// PropertyInput is the writable part of a listing, shared by create and update.
type PropertyInput struct {
	Title        string         `json:"title" validate:"required,max=200"`
	Description  string         `json:"description" validate:"max=20000"`
	Price        float64        `json:"price" validate:"gte=0"`
	Currency     string         `json:"currency" validate:"omitempty,len=3"`
	PropertyType string         `json:"property_type" validate:"required"`
	ListingType  string         `json:"listing_type" validate:"required"`
	Bedrooms     int            `json:"bedrooms" validate:"gte=0,lte=1000"`
	Bathrooms    int            `json:"bathrooms" validate:"gte=0,lte=1000"`
	AreaM2       float64        `json:"area_m2" validate:"gte=0"`
	Address      string         `json:"address" validate:"max=300"`
	City         string         `json:"city" validate:"max=120"`
	Country      string         `json:"country" validate:"max=120"`
	Latitude     *float64       `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64       `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	CustomFields map[string]any `json:"custom_fields"`
}

func (in *PropertyInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.PropertyType = strings.TrimSpace(in.PropertyType)
	in.ListingType = strings.TrimSpace(in.ListingType)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)
}

// validate checks the input and returns the normalized custom field values.
func (s *PropertyService) validate(agentID string, in *PropertyInput) (model.JSONMap, error) {
	in.normalize()

	err := validateInput(in)
	if err != nil {
		return nil, err
	}
	if !model.IsPropertyType(in.PropertyType) {
		return nil, invalidf("property_type must be one of: %s", strings.Join(model.PropertyTypes, ", "))
	}
	if !model.IsListingType(in.ListingType) {
		return nil, invalidf("listing_type must be one of: %s", strings.Join(model.ListingTypes, ", "))
	}

	if in.Currency == "" {
		def, err := s.currencyRepo.Default()
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return nil, invalidf("currency is required")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get default currency: %w", err)
		}
		in.Currency = def.Code
	} else {
		_, err = s.currencyRepo.ByCode(in.Currency)
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return nil, invalidf("currency %s is not supported", in.Currency)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get currency: %w", err)
		}
	}

	fields, err := s.customFieldRepo.List(agentID, in.PropertyType, in.ListingType)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom fields: %w", err)
	}
	return customFieldValues(fields, in.CustomFields)
}

// customFieldValues checks values against the agent's field definitions.
// Unknown keys are rejected and null values are dropped.
func customFieldValues(fields []*model.CustomField, values map[string]any) (model.JSONMap, error) {
	byKey := make(map[string]*model.CustomField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	out := model.JSONMap{}
	for key, value := range values {
		field, ok := byKey[key]
		if !ok {
			return nil, invalidf("unknown custom field %q", key)
		}
		if value == nil {
			continue
		}

		switch field.Type {
		case model.CustomFieldTypeText:
			v, ok := value.(string)
			if !ok {
				return nil, invalidf("custom field %q must be text", key)
			}
			if len(v) > 500 {
				return nil, invalidf("custom field %q must be at most 500 characters", key)
			}
			out[key] = strings.TrimSpace(v)
		case model.CustomFieldTypeNumber:
			n, ok := toNumber(value)
			if !ok {
				return nil, invalidf("custom field %q must be a number", key)
			}
			out[key] = n
		case model.CustomFieldTypeBoolean:
			v, ok := value.(bool)
			if !ok {
				return nil, invalidf("custom field %q must be true or false", key)
			}
			out[key] = v
		case model.CustomFieldTypeSelect:
			v, ok := value.(string)
			if !ok || !slices.Contains(field.Options, v) {
				return nil, invalidf("custom field %q must be one of: %s", key, strings.Join(field.Options, ", "))
			}
			out[key] = v
		}
	}
	return out, nil
}

// toNumber accepts JSON numbers and numeric strings. NaN and infinities are
// rejected since they cannot be stored as JSON.
func toNumber(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func (s *PropertyService) slugFor(title, excludeID string) (string, error) {
	return uniqueSlug(title, "property", func(candidate string) (bool, error) {
		return s.propertyRepo.SlugExists(candidate, excludeID)
	})
}

func (s *PropertyService) checkPropertyLimit(agentID string) error {
	sub, err := s.subscriptionService.Subscription(agentID)
	if err != nil {
		return err
	}

	limit := sub.PropertyLimit()
	if limit == model.Unlimited {
		return nil
	}

	count, err := s.propertyRepo.CountByAgent(agentID)
	if err != nil {
		return fmt.Errorf("failed to count properties: %w", err)
	}
	if count >= limit {
		return ErrPropertyLimitReached
	}
	return nil
}

// newProperty stores a listing. A non-nil token marks it as created through
// that upload token.
func (s *PropertyService) newProperty(agentID string, token *model.UploadToken, in *PropertyInput, values model.JSONMap) (*model.Property, error) {
	slug, err := s.slugFor(in.Title, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	property := &model.Property{
		ID:              uuid.New().String(),
		AgentID:         agentID,
		Slug:            slug,
		Photos:          model.StringList{},
		MarketingImages: model.StringList{},
		Status:          model.PropertyStatusActive,
		CreatedVia:      model.CreatedViaApp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if token != nil {
		property.CreatedVia = model.CreatedViaUploadToken
		property.UploadTokenID = &token.ID
	}
	applyInput(property, in, values)

	err = s.propertyRepo.Create(property)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return property, nil
}

func applyInput(p *model.Property, in *PropertyInput, values model.JSONMap) {
	p.Title = in.Title
	p.Description = in.Description
	p.Price = in.Price
	p.Currency = in.Currency
	p.PropertyType = in.PropertyType
	p.ListingType = in.ListingType
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.AreaM2 = in.AreaM2
	p.Address = in.Address
	p.City = in.City
	p.Country = in.Country
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.CustomFields = values
}

// Create adds a listing for a signed-in agent within the plan's property limit.
func (s *PropertyService) Create(agentID string, in PropertyInput) (*model.Property, error) {
	values, err := s.validate(agentID, &in)
	if err != nil {
		return nil, err
	}

	err = s.checkPropertyLimit(agentID)
	if err != nil {
		return nil, err
	}

	property, err := s.newProperty(agentID, nil, &in, values)
	if err != nil {
		return nil, err
	}

	slog.Info("property created", "agent_id", agentID, "property_id", property.ID)
	return property, nil
}

// CreateWithUploadToken adds a listing on behalf of the token's agent. The
// token must already be authorized; its use is recorded atomically and the
// property is removed again when another request used it up first.
func (s *PropertyService) CreateWithUploadToken(token *model.UploadToken, in PropertyInput) (*model.Property, error) {
	values, err := s.validate(token.AgentID, &in)
	if err != nil {
		return nil, err
	}

	property, err := s.newProperty(token.AgentID, token, &in, values)
	if err != nil {
		return nil, err
	}

	recorded, err := s.uploadTokenRepo.RecordUse(token.ID, time.Now())
	if err == nil && !recorded {
		err = ErrUploadTokenUsedUp
	}
	if err != nil {
		delErr := s.propertyRepo.Delete(property.ID)
		if delErr != nil {
			slog.Error("failed to roll back property after token use failed", "error", delErr, "property_id", property.ID)
		}
		return nil, err
	}

	agent, err := s.agentRepo.ByID(token.AgentID)
	if err != nil {
		slog.Warn("failed to load agent for upload notification", "error", err, "agent_id", token.AgentID)
	} else {
		err = s.emailService.SendUploadTokenUsedEmail(agent.Email, agent.DisplayName(), token.Label, property.Title, property.ID)
		if err != nil {
			slog.Warn("failed to send upload token used email", "error", err, "agent_id", agent.ID, "property_id", property.ID)
		}
	}

	slog.Info("property created with upload token", "agent_id", token.AgentID, "property_id", property.ID, "upload_token_id", token.ID)
	return property, nil
}

// Owned returns a property when it belongs to agentID. Other agents' listings
// are reported as not found.
func (s *PropertyService) Owned(agentID, propertyID string) (*model.Property, error) {
	property, err := s.propertyRepo.ByID(propertyID)
	if err != nil {
		return nil, err
	}
	if property.AgentID != agentID {
		return nil, repository.ErrPropertyNotFound
	}
	return property, nil
}

func (s *PropertyService) List(agentID string, filter model.PropertyFilter) ([]*model.Property, int, model.PropertyFilter, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	if filter.Status != "" && !model.IsPropertyStatus(filter.Status) {
		return nil, 0, filter, invalidf("status must be one of: %s", strings.Join(model.PropertyStatuses, ", "))
	}
	if filter.PropertyType != "" && !model.IsPropertyType(filter.PropertyType) {
		return nil, 0, filter, invalidf("property_type must be one of: %s", strings.Join(model.PropertyTypes, ", "))
	}
	if filter.ListingType != "" && !model.IsListingType(filter.ListingType) {
		return nil, 0, filter, invalidf("listing_type must be one of: %s", strings.Join(model.ListingTypes, ", "))
	}

	properties, total, err := s.propertyRepo.List(agentID, filter)
	if err != nil {
		return nil, 0, filter, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, total, filter, nil
}

// Update replaces the writable fields. The slug follows title changes.
func (s *PropertyService) Update(agentID, propertyID string, in PropertyInput) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	values, err := s.validate(agentID, &in)
	if err != nil {
		return nil, err
	}

	if in.ListingType != property.ListingType {
		changed := *property
		changed.ListingType = in.ListingType
		if !changed.AllowsStatus(property.Status) {
			return nil, invalidf("a %s listing cannot have status %s", in.ListingType, property.Status)
		}
	}

	if in.Title != property.Title {
		slug, err := s.slugFor(in.Title, property.ID)
		if err != nil {
			return nil, err
		}
		property.Slug = slug
	}

	applyInput(property, &in, values)
	property.UpdatedAt = time.Now()

	err = s.propertyRepo.Update(property)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	return property, nil
}

func (s *PropertyService) UpdateStatus(agentID, propertyID, status string) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	if !model.IsPropertyStatus(status) {
		return nil, invalidf("status must be one of: %s", strings.Join(model.PropertyStatuses, ", "))
	}
	if !property.AllowsStatus(status) {
		return nil, invalidf("a %s listing cannot be marked %s", property.ListingType, status)
	}

	err = s.propertyRepo.UpdateStatus(property.ID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	property.Status = status
	return property, nil
}

// Delete removes the listing with its stored media. Storage and video
// failures are logged and do not stop the deletion.
func (s *PropertyService) Delete(ctx context.Context, agentID, propertyID string) error {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return err
	}

	err = s.fileService.DeleteOwnerFiles(model.FileOwnerProperty, property.ID)
	if err != nil {
		slog.Warn("failed to delete property files", "error", err, "property_id", property.ID)
	}

	if property.VideoUID != "" {
		err = s.videos.Delete(ctx, property.VideoUID)
		if err != nil {
			slog.Warn("failed to delete property video", "error", err, "property_id", property.ID, "video_uid", property.VideoUID)
		}
	}

	err = s.propertyRepo.Delete(property.ID)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	slog.Info("property deleted", "agent_id", agentID, "property_id", property.ID)
	return nil
}

// PublicListing returns a listing by slug with its agent and counts the view.
func (s *PropertyService) PublicListing(slug string) (*model.Property, *model.Agent, error) {
	property, err := s.propertyRepo.BySlug(slug)
	if err != nil {
		return nil, nil, err
	}

	agent, err := s.agentRepo.ByID(property.AgentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get agent: %w", err)
	}

	err = s.propertyRepo.IncrementViews(property.ID)
	if err != nil {
		slog.Warn("failed to increment views", "error", err, "property_id", property.ID)
	} else {
		property.Views++
	}

	return property, agent, nil
}
