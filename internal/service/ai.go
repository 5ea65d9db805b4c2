package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	defaultDescriptionWords = 150
	marketingImageSize      = "1024x1024"
)

type AIService struct {
	ai              AIProvider
	propertyService *PropertyService
	propertyRepo    repository.PropertyRepository
	customFieldRepo repository.CustomFieldRepository
	agentRepo       repository.AgentRepository
	creditService   *CreditService
	fileService     *FileService
}

func NewAIService(
	ai AIProvider,
	propertyService *PropertyService,
	propertyRepo repository.PropertyRepository,
	customFieldRepo repository.CustomFieldRepository,
	agentRepo repository.AgentRepository,
	creditService *CreditService,
	fileService *FileService,
) *AIService {
	return &AIService{
		ai:              ai,
		propertyService: propertyService,
		propertyRepo:    propertyRepo,
		customFieldRepo: customFieldRepo,
		agentRepo:       agentRepo,
		creditService:   creditService,
		fileService:     fileService,
	}
}

type DescriptionInput struct {
	PropertyID string `json:"property_id" validate:"required"`
	Tone       string `json:"tone" validate:"omitempty,oneof=professional friendly luxury casual"`
	Language   string `json:"language"`
	MaxWords   int    `json:"max_words" validate:"omitempty,gte=30,lte=600"`
	Save       bool   `json:"save"`
}

// GenerateDescription writes a listing description. The credit is charged
// after the provider answered; Save stores the text on the property.
func (s *AIService) GenerateDescription(ctx context.Context, agentID string, in DescriptionInput) (string, error) {
	err := validateInput(in)
	if err != nil {
		return "", err
	}

	property, err := s.propertyService.Owned(agentID, in.PropertyID)
	if err != nil {
		return "", err
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return "", err
	}

	lang := in.Language
	if lang == "" {
		lang = agent.Locale
	}
	if !model.IsSupportedLocale(lang) {
		return "", invalidf("language must be one of: %s", strings.Join(model.SupportedLocales, ", "))
	}
	tone := in.Tone
	if tone == "" {
		tone = "professional"
	}
	maxWords := in.MaxWords
	if maxWords == 0 {
		maxWords = defaultDescriptionWords
	}

	err = s.creditService.Check(agentID, CreditCostDescription)
	if err != nil {
		return "", err
	}

	fields, err := s.customFieldRepo.List(agentID, property.PropertyType, property.ListingType)
	if err != nil {
		return "", fmt.Errorf("failed to get custom fields: %w", err)
	}

	system := fmt.Sprintf(
		"You are a real-estate copywriter. Write a %s listing description in %s of at most %d words. "+
			"Use markdown paragraphs, no headings. Only use facts from the listing data.",
		tone, languageName(lang), maxWords)

	description, err := s.ai.Complete(ctx, system, listingFacts(property, fields))
	if err != nil {
		return "", fmt.Errorf("failed to generate description: %w", err)
	}

	if in.Save {
		property.Description = description
		property.UpdatedAt = time.Now()
		err = s.propertyRepo.Update(property)
		if err != nil {
			return "", fmt.Errorf("failed to save description: %w", err)
		}
	}

	err = s.creditService.Consume(agentID, CreditCostDescription)
	if err != nil {
		slog.Warn("failed to charge description credit", "error", err, "agent_id", agentID, "property_id", property.ID)
	}

	slog.Info("ai description generated", "agent_id", agentID, "property_id", property.ID, "saved", in.Save)
	return description, nil
}

type MarketingImageInput struct {
	PropertyID string `json:"property_id" validate:"required"`
	Style      string `json:"style" validate:"omitempty,oneof=modern minimalist luxury cozy twilight"`
}

// GenerateMarketingImage renders a promotional image, stores it and appends
// it to the property's marketing images.
func (s *AIService) GenerateMarketingImage(ctx context.Context, agentID string, in MarketingImageInput) (*model.Property, string, error) {
	err := validateInput(in)
	if err != nil {
		return nil, "", err
	}

	property, err := s.propertyService.Owned(agentID, in.PropertyID)
	if err != nil {
		return nil, "", err
	}

	style := in.Style
	if style == "" {
		style = "modern"
	}

	err = s.creditService.Check(agentID, CreditCostMarketingImage)
	if err != nil {
		return nil, "", err
	}

	prompt := fmt.Sprintf(
		"Photorealistic %s marketing image of a %s for %s in %s. %d bedrooms, %d bathrooms, %s m². "+
			"No text, no people, no watermarks.",
		style, property.PropertyType, property.ListingType, locationOf(property),
		property.Bedrooms, property.Bathrooms, formatNumber(property.AreaM2))

	img, err := s.ai.GenerateImage(ctx, prompt, marketingImageSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate image: %w", err)
	}

	file, err := s.fileService.Upload(UploadInput{
		AgentID:      agentID,
		OwnerType:    model.FileOwnerProperty,
		OwnerID:      property.ID,
		FileType:     model.FileTypeMarketingImage,
		OriginalName: "marketing.png",
		ContentType:  "image/png",
		Size:         int64(len(img)),
		Body:         bytes.NewReader(img),
	})
	if err != nil {
		return nil, "", err
	}

	property.MarketingImages = append(property.MarketingImages, file.URL)
	property.UpdatedAt = time.Now()
	err = s.propertyRepo.Update(property)
	if err != nil {
		delErr := s.fileService.Delete(file.ID)
		if delErr != nil {
			slog.Warn("failed to discard marketing image", "error", delErr, "file_id", file.ID)
		}
		return nil, "", fmt.Errorf("failed to save marketing image: %w", err)
	}

	err = s.creditService.Consume(agentID, CreditCostMarketingImage)
	if err != nil {
		slog.Warn("failed to charge marketing image credits", "error", err, "agent_id", agentID, "property_id", property.ID)
	}

	slog.Info("ai marketing image generated", "agent_id", agentID, "property_id", property.ID)
	return property, file.URL, nil
}

// listingFacts renders the property as a plain fact sheet for the prompt.
func listingFacts(p *model.Property, fields []*model.CustomField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Type: %s for %s\n", p.PropertyType, p.ListingType)
	fmt.Fprintf(&b, "Price: %s %s\n", formatNumber(p.Price), p.Currency)
	if p.Bedrooms > 0 {
		fmt.Fprintf(&b, "Bedrooms: %d\n", p.Bedrooms)
	}
	if p.Bathrooms > 0 {
		fmt.Fprintf(&b, "Bathrooms: %d\n", p.Bathrooms)
	}
	if p.AreaM2 > 0 {
		fmt.Fprintf(&b, "Area: %s m²\n", formatNumber(p.AreaM2))
	}
	if loc := locationOf(p); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}

	names := make(map[string]string, len(fields))
	for _, f := range fields {
		names[f.Key] = f.Name
	}
	keys := make([]string, 0, len(p.CustomFields))
	for key := range p.CustomFields {
		if _, ok := names[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", names[key], p.CustomFields[key])
	}

	if p.Description != "" {
		fmt.Fprintf(&b, "Agent notes: %s\n", p.Description)
	}
	if p.AudioTranscript != "" {
		fmt.Fprintf(&b, "Voice note: %s\n", p.AudioTranscript)
	}
	return b.String()
}

func locationOf(p *model.Property) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Address, p.City, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return display.English.Languages().Name(tag)
}
