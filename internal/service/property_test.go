package service

import (
	"context"
	"math"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service/video"
)

func TestCreatePropertyDefaultsAndSlugs(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	first := e.createProperty(t, agent.ID, "Sea View House")
	assert.Equal(t, "sea-view-house", first.Slug)
	assert.Equal(t, "USD", first.Currency, "falls back to the default currency")
	assert.Equal(t, model.PropertyStatusActive, first.Status)
	assert.Equal(t, model.CreatedViaApp, first.CreatedVia)

	second := e.createProperty(t, agent.ID, "Sea View House")
	assert.Equal(t, "sea-view-house-2", second.Slug)
}

func TestCreatePropertyValidation(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	tests := []struct {
		name string
		in   PropertyInput
	}{
		{"missing title", PropertyInput{PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale}},
		{"unknown property type", PropertyInput{Title: "x", PropertyType: "castle", ListingType: model.ListingTypeSale}},
		{"unknown listing type", PropertyInput{Title: "x", PropertyType: model.PropertyTypeHouse, ListingType: "lease"}},
		{"unsupported currency", PropertyInput{Title: "x", Currency: "XXX", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale}},
		{"negative price", PropertyInput{Title: "x", Price: -1, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale}},
		{"unknown custom field", PropertyInput{Title: "x", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale, CustomFields: map[string]any{"pool": true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.properties.Create(agent.ID, tt.in)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

func TestCreatePropertyCustomFieldValues(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	_, err := e.customFields.Create(agent.ID, CreateCustomFieldInput{Name: "Pool", Type: model.CustomFieldTypeBoolean, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	require.NoError(t, err)
	_, err = e.customFields.Create(agent.ID, CreateCustomFieldInput{Name: "Parking spots", Type: model.CustomFieldTypeNumber, PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	require.NoError(t, err)

	property, err := e.properties.Create(agent.ID, PropertyInput{
		Title:        "Garden House",
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		CustomFields: map[string]any{"pool": true, "parking_spots": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, property.CustomFields["pool"])
	assert.Equal(t, 2.0, property.CustomFields["parking_spots"])

	_, err = e.properties.Create(agent.ID, PropertyInput{
		Title:        "Garden House",
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		CustomFields: map[string]any{"pool": "yes"},
	})
	assert.True(t, IsValidationError(err))

	for _, bad := range []any{"NaN", "Inf", "+Infinity", "-inf", math.Inf(1), "two"} {
		_, err = e.properties.Create(agent.ID, PropertyInput{
			Title:        "Garden House",
			PropertyType: model.PropertyTypeHouse,
			ListingType:  model.ListingTypeSale,
			CustomFields: map[string]any{"parking_spots": bad},
		})
		assert.True(t, IsValidationError(err), "%v", bad)
	}
}

func TestCreatePropertyRespectsPlanLimit(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")

	limit := model.LimitsForPlan(model.SubscriptionPlanFree).Properties
	for i := 0; i < limit; i++ {
		e.createProperty(t, agent.ID, "Listing")
	}

	_, err := e.properties.Create(agent.ID, PropertyInput{Title: "One more", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	assert.ErrorIs(t, err, ErrPropertyLimitReached)

	e.setPlan(t, agent.ID, model.SubscriptionPlanPro)
	_, err = e.properties.Create(agent.ID, PropertyInput{Title: "One more", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	assert.NoError(t, err)
}

func TestOwnedHidesOtherAgentsProperties(t *testing.T) {
	e := newTestEnv(t)
	owner := e.newAgent(t, "ana@example.com")
	other := e.newAgent(t, "bea@example.com")
	property := e.createProperty(t, owner.ID, "Loft")

	_, err := e.properties.Owned(other.ID, property.ID)
	assert.ErrorIs(t, err, repository.ErrPropertyNotFound)

	_, err = e.properties.Update(other.ID, property.ID, PropertyInput{Title: "Mine", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale})
	assert.ErrorIs(t, err, repository.ErrPropertyNotFound)

	err = e.properties.Delete(context.Background(), other.ID, property.ID)
	assert.ErrorIs(t, err, repository.ErrPropertyNotFound)
}

func TestUpdatePropertyFollowsTitle(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	property := e.createProperty(t, agent.ID, "Loft")

	updated, err := e.properties.Update(agent.ID, property.ID, PropertyInput{
		Title:        "Riverside Loft",
		Price:        300000,
		PropertyType: model.PropertyTypeApartment,
		ListingType:  model.ListingTypeSale,
	})
	require.NoError(t, err)
	assert.Equal(t, "riverside-loft", updated.Slug)
	assert.Equal(t, model.PropertyTypeApartment, updated.PropertyType)

	same, err := e.properties.Update(agent.ID, property.ID, PropertyInput{
		Title:        "Riverside Loft",
		Price:        310000,
		PropertyType: model.PropertyTypeApartment,
		ListingType:  model.ListingTypeSale,
	})
	require.NoError(t, err)
	assert.Equal(t, "riverside-loft", same.Slug)
}

func TestUpdateStatusMatchesListingType(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	sale := e.createProperty(t, agent.ID, "For sale")

	_, err := e.properties.UpdateStatus(agent.ID, sale.ID, model.PropertyStatusRented)
	assert.True(t, IsValidationError(err))

	_, err = e.properties.UpdateStatus(agent.ID, sale.ID, "archived")
	assert.True(t, IsValidationError(err))

	updated, err := e.properties.UpdateStatus(agent.ID, sale.ID, model.PropertyStatusSold)
	require.NoError(t, err)
	assert.Equal(t, model.PropertyStatusSold, updated.Status)

	_, err = e.properties.Update(agent.ID, sale.ID, PropertyInput{Title: "For sale", PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeRent})
	assert.True(t, IsValidationError(err), "a sold listing cannot become a rental")
}

func TestListPropertiesClampsPaging(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	e.createProperty(t, agent.ID, "One")
	e.createProperty(t, agent.ID, "Two")

	properties, total, filter, err := e.properties.List(agent.ID, model.PropertyFilter{PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, properties, 2)
	assert.Equal(t, 1, filter.Page)
	assert.Equal(t, maxPerPage, filter.PerPage)

	_, _, _, err = e.properties.List(agent.ID, model.PropertyFilter{Status: "gone"})
	assert.True(t, IsValidationError(err))
}

func TestPublicListingCountsViews(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	property := e.createProperty(t, agent.ID, "Loft")

	_, _, err := e.properties.PublicListing(property.Slug)
	require.NoError(t, err)
	found, owner, err := e.properties.PublicListing(property.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Views)
	assert.Equal(t, agent.ID, owner.ID)

	_, _, err = e.properties.PublicListing("missing")
	assert.ErrorIs(t, err, repository.ErrPropertyNotFound)
}

func TestPhotosAddRemoveReorder(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	property := e.createProperty(t, agent.ID, "Loft")

	updated, err := e.properties.AddPhotos(agent.ID, property.ID, []*multipart.FileHeader{
		fileHeader(t, "photos", "front.jpg", jpegBytes),
		fileHeader(t, "photos", "back.jpg", jpegBytes),
	})
	require.NoError(t, err)
	require.Len(t, updated.Photos, 2)
	assert.Equal(t, 2, e.storage.Len())

	reversed := []string{updated.Photos[1], updated.Photos[0]}
	reordered, err := e.properties.ReorderPhotos(agent.ID, property.ID, reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, []string(reordered.Photos))

	_, err = e.properties.ReorderPhotos(agent.ID, property.ID, []string{reversed[0], reversed[0]})
	assert.True(t, IsValidationError(err))

	removed, err := e.properties.RemovePhoto(agent.ID, property.ID, reversed[0])
	require.NoError(t, err)
	assert.Equal(t, []string{reversed[1]}, []string(removed.Photos))
	assert.Equal(t, 1, e.storage.Len())

	_, err = e.properties.RemovePhoto(agent.ID, property.ID, "https://cdn.test/missing.jpg")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestAddPhotosRejectsNonImages(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	property := e.createProperty(t, agent.ID, "Loft")

	_, err := e.properties.AddPhotos(agent.ID, property.ID, []*multipart.FileHeader{
		fileHeader(t, "photos", "front.jpg", jpegBytes),
		fileHeader(t, "photos", "notes.jpg", []byte("just some text")),
	})
	assert.True(t, IsValidationError(err))
	assert.Zero(t, e.storage.Len(), "nothing is stored when one file fails")
}

func TestVideoUploadAndRefresh(t *testing.T) {
	e := newTestEnv(t)
	agent := e.newAgent(t, "ana@example.com")
	property := e.createProperty(t, agent.ID, "Loft")

	_, err := e.properties.RefreshVideo(context.Background(), agent.ID, property.ID)
	assert.ErrorIs(t, err, ErrNoVideo)

	mp4 := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
	updated, err := e.properties.UploadVideo(context.Background(), agent.ID, property.ID, fileHeader(t, "video", "tour.mp4", mp4))
	require.NoError(t, err)
	assert.Equal(t, "vid-1", updated.VideoUID)
	assert.Equal(t, []string{"tour.mp4"}, e.videos.uploads)

	e.videos.status = &video.Video{UID: "vid-1", State: "ready", PlaybackURL: "https://video.test/vid-1.m3u8"}
	refreshed, err := e.properties.RefreshVideo(context.Background(), agent.ID, property.ID)
	require.NoError(t, err)
	assert.Equal(t, "ready", refreshed.VideoStatus)
	assert.Equal(t, "https://video.test/vid-1.m3u8", refreshed.VideoPlaybackURL)

	require.NoError(t, e.properties.Delete(context.Background(), agent.ID, property.ID))
	assert.Equal(t, []string{"vid-1"}, e.videos.deleted)
}
