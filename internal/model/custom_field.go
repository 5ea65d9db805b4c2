package model

import (
	"slices"
	"time"
)

const (
	CustomFieldTypeText    = "text"
	CustomFieldTypeNumber  = "number"
	CustomFieldTypeBoolean = "boolean"
	CustomFieldTypeSelect  = "select"
)

// MaxCustomFieldsPerCombination caps fields per (property_type, listing_type).
const MaxCustomFieldsPerCombination = 5

var CustomFieldTypes = []string{CustomFieldTypeText, CustomFieldTypeNumber, CustomFieldTypeBoolean, CustomFieldTypeSelect}

type CustomField struct {
	ID           string     `db:"id" json:"id"`
	AgentID      string     `db:"agent_id" json:"-"`
	PropertyType string     `db:"property_type" json:"property_type"`
	ListingType  string     `db:"listing_type" json:"listing_type"`
	Key          string     `db:"field_key" json:"key"`
	Name         string     `db:"name" json:"name"`
	Type         string     `db:"type" json:"type"`
	Icon         string     `db:"icon" json:"icon"`
	Options      StringList `db:"options" json:"options"`
	Position     int        `db:"position" json:"position"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func IsCustomFieldType(t string) bool {
	return slices.Contains(CustomFieldTypes, t)
}
