package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

func intPtr(i int) *int { return &i }

func TestCreateUploadTokenDefaultsAndCaps(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{Label: "  Owner of flat 3  "})
	require.NoError(t, err)
	assert.Equal(t, "Owner of flat 3", token.Label)
	assert.Equal(t, 1, token.MaxUses)
	assert.True(t, token.Valid)
	assert.Equal(t, "https://app.test/upload/"+token.Token, token.URL)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), token.ExpiresAt, time.Minute)

	long, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{ExpiresInHours: intPtr(24 * 365), MaxUses: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, long.MaxUses)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), long.ExpiresAt, time.Minute)

	_, err = e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{MaxUses: intPtr(500)})
	assert.True(t, IsValidationError(err))
}

func TestUploadTokenCreatesPropertyOnce(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{Label: "Seller"})
	require.NoError(t, err)

	authorized, err := e.uploadTokens.Authorize(token.Token)
	require.NoError(t, err)

	property, err := e.properties.CreateWithUploadToken(authorized, PropertyInput{
		Title:        "Flat from the owner",
		PropertyType: model.PropertyTypeApartment,
		ListingType:  model.ListingTypeRent,
	})
	require.NoError(t, err)
	assert.Equal(t, agent.ID, property.AgentID)
	assert.Equal(t, model.CreatedViaUploadToken, property.CreatedVia)

	_, err = e.uploadTokens.Authorize(token.Token)
	assert.ErrorIs(t, err, ErrUploadTokenUsedUp)

	_, err = e.uploadTokens.Validate(token.Token)
	assert.ErrorIs(t, err, ErrUploadTokenUsedUp)

	// Photos stay allowed for the property the token created.
	scoped, err := e.uploadTokens.AuthorizeProperty(token.Token, property.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, scoped.AgentID)

	other := e.createProperty(t, agent.ID, "Agent listing")
	_, err = e.uploadTokens.AuthorizeProperty(token.Token, other.ID)
	assert.ErrorIs(t, err, ErrUploadTokenScope)
}

func TestMultiUseTokenKeepsPhotoAccessToEachProperty(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{MaxUses: intPtr(2)})
	require.NoError(t, err)

	create := func(title string) *model.Property {
		authorized, err := e.uploadTokens.Authorize(token.Token)
		require.NoError(t, err)
		property, err := e.properties.CreateWithUploadToken(authorized, PropertyInput{
			Title:        title,
			PropertyType: model.PropertyTypeHouse,
			ListingType:  model.ListingTypeSale,
		})
		require.NoError(t, err)
		return property
	}
	first := create("First house")
	second := create("Second house")

	for _, property := range []*model.Property{first, second} {
		scoped, err := e.uploadTokens.AuthorizeProperty(token.Token, property.ID)
		require.NoError(t, err, property.Title)
		assert.Equal(t, agent.ID, scoped.AgentID)
	}

	other, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)
	_, err = e.uploadTokens.AuthorizeProperty(other.Token, first.ID)
	assert.ErrorIs(t, err, ErrUploadTokenScope)

	_, err = e.uploadTokens.AuthorizeProperty(token.Token, "missing")
	assert.ErrorIs(t, err, ErrUploadTokenScope)
}

func TestUploadTokenRaceRollsBackProperty(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)

	// Both requests pass authorization before either records its use.
	first, err := e.uploadTokens.Authorize(token.Token)
	require.NoError(t, err)
	second, err := e.uploadTokens.Authorize(token.Token)
	require.NoError(t, err)

	in := PropertyInput{Title: "Duplicate", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale}
	_, err = e.properties.CreateWithUploadToken(first, in)
	require.NoError(t, err)
	_, err = e.properties.CreateWithUploadToken(second, in)
	assert.ErrorIs(t, err, ErrUploadTokenUsedUp)

	count, err := e.propertyRepo.CountByAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUploadTokenIgnoresPlanLimit(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	for i := 0; i < model.LimitsForPlan(model.SubscriptionPlanFree).Properties; i++ {
		e.createProperty(t, agent.ID, "Listing")
	}

	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)
	authorized, err := e.uploadTokens.Authorize(token.Token)
	require.NoError(t, err)

	_, err = e.properties.CreateWithUploadToken(authorized, PropertyInput{Title: "Extra", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	assert.NoError(t, err)
}

func TestUploadTokenRejections(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	_, err := e.uploadTokens.Authorize("")
	assert.ErrorIs(t, err, repository.ErrUploadTokenNotFound)
	_, err = e.uploadTokens.Authorize("does-not-exist")
	assert.ErrorIs(t, err, repository.ErrUploadTokenNotFound)

	inactive, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)
	require.NoError(t, e.uploadTokens.Deactivate(agent.ID, inactive.ID))
	_, err = e.uploadTokens.Authorize(inactive.Token)
	assert.ErrorIs(t, err, ErrUploadTokenInactive)
	assert.True(t, IsUploadTokenRejection(err))

	expired, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)
	_, err = e.conn.Exec(`UPDATE upload_tokens SET expires_at = $1 WHERE id = $2`, time.Now().Add(-time.Hour), expired.ID)
	require.NoError(t, err)
	_, err = e.uploadTokens.Validate(expired.Token)
	assert.ErrorIs(t, err, ErrUploadTokenExpired)

	other := e.newAgent(t, "bea@example.com")
	err = e.uploadTokens.Deactivate(other.ID, expired.ID)
	assert.ErrorIs(t, err, repository.ErrUploadTokenNotFound)
}

func TestValidateUploadTokenReturnsForm(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	_, err := e.customFields.Create(agent.ID, CreateCustomFieldInput{Name: "Pool", Type: model.CustomFieldTypeBoolean, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	require.NoError(t, err)

	token, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{Label: "Seller", MaxUses: intPtr(3)})
	require.NoError(t, err)

	form, err := e.uploadTokens.Validate(token.Token)
	require.NoError(t, err)
	assert.True(t, form.Valid)
	assert.Equal(t, "Seller", form.Label)
	assert.Equal(t, 3, form.RemainingUses)
	assert.Equal(t, agent.DisplayName(), form.Agent.Name)
	assert.Len(t, form.CustomFields, 1)
	assert.NotEmpty(t, form.Currencies)
}

func TestCleanupRemovesStaleTokens(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	stale, err := e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)
	_, err = e.uploadTokens.Create(agent.ID, CreateUploadTokenInput{})
	require.NoError(t, err)

	_, err = e.conn.Exec(`UPDATE upload_tokens SET expires_at = $1 WHERE id = $2`, time.Now().Add(-60*24*time.Hour), stale.ID)
	require.NoError(t, err)

	deleted, err := e.uploadTokens.Cleanup(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	tokens, err := e.uploadTokens.List(agent.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}
