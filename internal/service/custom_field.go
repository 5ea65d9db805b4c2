package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/validation"
)

var (
	ErrCustomFieldLimit = fmt.Errorf("a property type and listing type combination can have at most %d custom fields", model.MaxCustomFieldsPerCombination)
	ErrCustomFieldKey   = errors.New("a custom field with this name already exists for this combination")
)

type CustomFieldService struct {
	customFieldRepo repository.CustomFieldRepository
}

func NewCustomFieldService(customFieldRepo repository.CustomFieldRepository) *CustomFieldService {
	return &CustomFieldService{customFieldRepo: customFieldRepo}
}

type CreateCustomFieldInput struct {
	Name         string   `json:"name" validate:"required,max=60"`
	Type         string   `json:"type" validate:"required"`
	Icon         string   `json:"icon" validate:"max=60"`
	Options      []string `json:"options" validate:"max=50,dive,max=100"`
	PropertyType string   `json:"property_type" validate:"required"`
	ListingType  string   `json:"listing_type" validate:"required"`
}

type UpdateCustomFieldInput struct {
	Name    string   `json:"name" validate:"required,max=60"`
	Icon    string   `json:"icon" validate:"max=60"`
	Options []string `json:"options" validate:"max=50,dive,max=100"`
}

func (s *CustomFieldService) List(agentID, propertyType, listingType string) ([]*model.CustomField, error) {
	if propertyType != "" && !model.IsPropertyType(propertyType) {
		return nil, invalidf("property_type must be one of: %s", strings.Join(model.PropertyTypes, ", "))
	}
	if listingType != "" && !model.IsListingType(listingType) {
		return nil, invalidf("listing_type must be one of: %s", strings.Join(model.ListingTypes, ", "))
	}

	return s.customFieldRepo.List(agentID, propertyType, listingType)
}

// cleanOptions trims options and drops blanks and duplicates.
func cleanOptions(options []string) []string {
	out := make([]string, 0, len(options))
	seen := map[string]bool{}
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

func (s *CustomFieldService) Create(agentID string, in CreateCustomFieldInput) (*model.CustomField, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	err := validateInput(in)
	if err != nil {
		return nil, err
	}
	if !model.IsCustomFieldType(in.Type) {
		return nil, invalidf("type must be one of: %s", strings.Join(model.CustomFieldTypes, ", "))
	}
	if !model.IsPropertyType(in.PropertyType) {
		return nil, invalidf("property_type must be one of: %s", strings.Join(model.PropertyTypes, ", "))
	}
	if !model.IsListingType(in.ListingType) {
		return nil, invalidf("listing_type must be one of: %s", strings.Join(model.ListingTypes, ", "))
	}

	options := cleanOptions(in.Options)
	if in.Type == model.CustomFieldTypeSelect && len(options) == 0 {
		return nil, invalidf("select fields need at least one option")
	}
	if in.Type != model.CustomFieldTypeSelect {
		options = []string{}
	}

	key := validation.CustomFieldKey(in.Name)
	if key == "" {
		return nil, invalidf("name must contain letters or digits")
	}

	exists, err := s.customFieldRepo.KeyExists(agentID, in.PropertyType, in.ListingType, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check custom field key: %w", err)
	}
	if exists {
		return nil, ErrCustomFieldKey
	}

	now := time.Now()
	field := &model.CustomField{
		ID:           uuid.New().String(),
		AgentID:      agentID,
		PropertyType: in.PropertyType,
		ListingType:  in.ListingType,
		Key:          key,
		Name:         in.Name,
		Type:         in.Type,
		Icon:         in.Icon,
		Options:      options,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.customFieldRepo.CreateCapped(field, model.MaxCustomFieldsPerCombination)
	if errors.Is(err, repository.ErrCustomFieldsFull) {
		return nil, ErrCustomFieldLimit
	}
	if errors.Is(err, repository.ErrDuplicateFieldKey) {
		return nil, ErrCustomFieldKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create custom field: %w", err)
	}

	slog.Info("custom field created", "agent_id", agentID, "custom_field_id", field.ID, "key", key)
	return field, nil
}

func (s *CustomFieldService) owned(agentID, fieldID string) (*model.CustomField, error) {
	field, err := s.customFieldRepo.ByID(fieldID)
	if err != nil {
		return nil, err
	}
	if field.AgentID != agentID {
		return nil, repository.ErrCustomFieldNotFound
	}
	return field, nil
}

// Update changes name, icon and options. Type, key and combination stay fixed.
func (s *CustomFieldService) Update(agentID, fieldID string, in UpdateCustomFieldInput) (*model.CustomField, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	err := validateInput(in)
	if err != nil {
		return nil, err
	}

	field, err := s.owned(agentID, fieldID)
	if err != nil {
		return nil, err
	}

	if field.Type == model.CustomFieldTypeSelect {
		options := cleanOptions(in.Options)
		if len(options) == 0 {
			return nil, invalidf("select fields need at least one option")
		}
		field.Options = options
	}

	field.Name = in.Name
	field.Icon = in.Icon
	field.UpdatedAt = time.Now()

	err = s.customFieldRepo.Update(field)
	if err != nil {
		return nil, fmt.Errorf("failed to update custom field: %w", err)
	}
	return field, nil
}

// Delete removes the definition. Values already stored on properties stay in
// their JSON and are no longer shown.
func (s *CustomFieldService) Delete(agentID, fieldID string) error {
	field, err := s.owned(agentID, fieldID)
	if err != nil {
		return err
	}

	err = s.customFieldRepo.Delete(field.ID)
	if err != nil {
		return fmt.Errorf("failed to delete custom field: %w", err)
	}

	slog.Info("custom field deleted", "agent_id", agentID, "custom_field_id", field.ID)
	return nil
}

// Reorder assigns positions by index. Every id must belong to the agent.
func (s *CustomFieldService) Reorder(agentID string, ids []string) error {
	if len(ids) == 0 {
		return invalidf("ids are required")
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return invalidf("ids must not repeat")
		}
		seen[id] = true

		_, err := s.owned(agentID, id)
		if err != nil {
			return err
		}
	}

	for position, id := range ids {
		err := s.customFieldRepo.UpdatePosition(id, position)
		if err != nil {
			return fmt.Errorf("failed to reorder custom fields: %w", err)
		}
	}
	return nil
}
