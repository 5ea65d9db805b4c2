package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

func houseSaleField(name, fieldType string, options ...string) CreateCustomFieldInput {
	return CreateCustomFieldInput{
		Name:         name,
		Type:         fieldType,
		Options:      options,
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
	}
}

func TestCustomFieldLimitPerCombination(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	for i := 0; i < model.MaxCustomFieldsPerCombination; i++ {
		field, err := e.customFields.Create(agent.ID, houseSaleField(fmt.Sprintf("Field %d", i), model.CustomFieldTypeText))
		require.NoError(t, err)
		assert.Equal(t, i, field.Position)
	}

	_, err := e.customFields.Create(agent.ID, houseSaleField("One too many", model.CustomFieldTypeText))
	assert.ErrorIs(t, err, ErrCustomFieldLimit)

	// Another combination has its own allowance.
	rent := houseSaleField("One too many", model.CustomFieldTypeText)
	rent.ListingType = model.ListingTypeRent
	_, err = e.customFields.Create(agent.ID, rent)
	assert.NoError(t, err)
}

func TestCustomFieldKeysAreUnique(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	field, err := e.customFields.Create(agent.ID, houseSaleField("Sea View", model.CustomFieldTypeBoolean))
	require.NoError(t, err)
	assert.Equal(t, "sea_view", field.Key)

	_, err = e.customFields.Create(agent.ID, houseSaleField("sea-view", model.CustomFieldTypeBoolean))
	assert.ErrorIs(t, err, ErrCustomFieldKey)

	other := e.newAgent(t, "bea@example.com")
	_, err = e.customFields.Create(other.ID, houseSaleField("Sea View", model.CustomFieldTypeBoolean))
	assert.NoError(t, err)
}

func TestCustomFieldSelectNeedsOptions(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	_, err := e.customFields.Create(agent.ID, houseSaleField("Heating", model.CustomFieldTypeSelect, " ", ""))
	assert.True(t, IsValidationError(err))

	field, err := e.customFields.Create(agent.ID, houseSaleField("Heating", model.CustomFieldTypeSelect, "gas", " gas ", "electric"))
	require.NoError(t, err)
	assert.Equal(t, []string{"gas", "electric"}, []string(field.Options))

	text, err := e.customFields.Create(agent.ID, houseSaleField("Notes", model.CustomFieldTypeText, "ignored"))
	require.NoError(t, err)
	assert.Empty(t, text.Options)

	_, err = e.customFields.Create(agent.ID, houseSaleField("Color", "colour"))
	assert.True(t, IsValidationError(err))
}

func TestCustomFieldReorder(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	a, err := e.customFields.Create(agent.ID, houseSaleField("A", model.CustomFieldTypeText))
	require.NoError(t, err)
	b, err := e.customFields.Create(agent.ID, houseSaleField("B", model.CustomFieldTypeText))
	require.NoError(t, err)

	require.NoError(t, e.customFields.Reorder(agent.ID, []string{b.ID, a.ID}))

	fields, err := e.customFields.List(agent.ID, model.PropertyTypeHouse, model.ListingTypeSale)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, b.ID, fields[0].ID)

	err = e.customFields.Reorder(agent.ID, []string{a.ID, a.ID})
	assert.True(t, IsValidationError(err))

	other := e.newAgent(t, "bea@example.com")
	err = e.customFields.Reorder(other.ID, []string{a.ID})
	assert.ErrorIs(t, err, repository.ErrCustomFieldNotFound)
}

func TestDeletedCustomFieldIsHiddenPublicly(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	field, err := e.customFields.Create(agent.ID, houseSaleField("Pool", model.CustomFieldTypeBoolean))
	require.NoError(t, err)

	property, err := e.properties.Create(agent.ID, PropertyInput{
		Title:        "Villa",
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		CustomFields: map[string]any{"pool": true},
	})
	require.NoError(t, err)

	require.NoError(t, e.customFields.Delete(agent.ID, field.ID))

	fields, err := e.customFields.List(agent.ID, model.PropertyTypeHouse, model.ListingTypeSale)
	require.NoError(t, err)
	public := property.Public(fields)
	assert.Empty(t, public.Features)
}
