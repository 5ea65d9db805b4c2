package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

func newAgent(t *testing.T, agents repository.AgentRepository, email, username string) *model.Agent {
	t.Helper()

	now := time.Now().UTC()
	agent := &model.Agent{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		Locale:            model.DefaultLocale,
		WatermarkPosition: model.WatermarkBottomRight,
		WatermarkOpacity:  0.5,
		AICredits:         2,
		CreditsResetAt:    now.AddDate(0, 1, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, agents.Create(agent))
	return agent
}

func newProperty(t *testing.T, properties repository.PropertyRepository, agentID, slug string, mutate func(*model.Property)) *model.Property {
	t.Helper()

	now := time.Now().UTC()
	p := &model.Property{
		ID:           uuid.NewString(),
		AgentID:      agentID,
		Slug:         slug,
		Title:        slug,
		Price:        100000,
		Currency:     "USD",
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		Photos:       model.StringList{},
		CustomFields: model.JSONMap{},
		Status:       model.PropertyStatusActive,
		CreatedVia:   model.CreatedViaApp,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, properties.Create(p))
	return p
}

func TestAgentRepository(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)

	agent := newAgent(t, agents, "ana@example.com", "ana")

	found, err := agents.ByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, found.ID)
	assert.Nil(t, found.PasswordHash)

	_, err = agents.ByEmail("nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrAgentNotFound)

	err = agents.Create(&model.Agent{ID: uuid.NewString(), Email: "ana@example.com", Username: "ana-2"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	exists, err := agents.UsernameExists("ana", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = agents.UsernameExists("ana", agent.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the agent's own username does not count")
}

func TestConsumeCreditsNeverOverdraws(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	agent := newAgent(t, agents, "ben@example.com", "ben")

	ok, err := agents.ConsumeCredits(agent.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = agents.ConsumeCredits(agent.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := agents.ByID(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.AICreditsUsed)
	assert.Equal(t, 1, reloaded.CreditsRemaining())
}

func TestPropertyListFiltersAndPaginates(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	properties := repository.NewPropertyRepository(conn)

	agent := newAgent(t, agents, "cleo@example.com", "cleo")
	other := newAgent(t, agents, "dan@example.com", "dan")

	base := time.Now().UTC()
	for i, slug := range []string{"beach-house", "city-flat", "hill-house"} {
		newProperty(t, properties, agent.ID, slug, func(p *model.Property) {
			p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			if slug == "city-flat" {
				p.ListingType = model.ListingTypeRent
				p.PropertyType = model.PropertyTypeApartment
				p.City = "Lisbon"
			}
		})
	}
	newProperty(t, properties, other.ID, "not-mine", nil)

	all, total, err := properties.List(agent.ID, model.PropertyFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, "hill-house", all[0].Slug, "newest first")

	page2, _, err := properties.List(agent.ID, model.PropertyFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "beach-house", page2[0].Slug)

	rentals, total, err := properties.List(agent.ID, model.PropertyFilter{ListingType: model.ListingTypeRent, Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "city-flat", rentals[0].Slug)

	searched, total, err := properties.List(agent.ID, model.PropertyFilter{Query: "LISBON", Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "city-flat", searched[0].Slug)
}

func TestPropertySlugsAndViews(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	properties := repository.NewPropertyRepository(conn)
	agent := newAgent(t, agents, "eve@example.com", "eve")

	p := newProperty(t, properties, agent.ID, "sunny-villa", func(p *model.Property) {
		p.Photos = model.StringList{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"}
		p.CustomFields = model.JSONMap{"pool": true}
	})

	exists, err := properties.SlugExists("sunny-villa", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = properties.SlugExists("sunny-villa", p.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = properties.Create(&model.Property{ID: uuid.NewString(), AgentID: agent.ID, Slug: "sunny-villa", Title: "x", Currency: "USD", PropertyType: "house", ListingType: "sale", Status: "active"})
	assert.ErrorIs(t, err, repository.ErrDuplicateSlug)

	require.NoError(t, properties.IncrementViews(p.ID))
	require.NoError(t, properties.IncrementViews(p.ID))

	found, err := properties.BySlug("sunny-villa")
	require.NoError(t, err)
	assert.Equal(t, 2, found.Views)
	assert.Equal(t, model.StringList{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"}, found.Photos)
	assert.Equal(t, true, found.CustomFields["pool"])

	assert.ErrorIs(t, properties.IncrementViews("missing"), repository.ErrPropertyNotFound)
	assert.ErrorIs(t, properties.Delete("missing"), repository.ErrPropertyNotFound)
}

func TestUploadTokenRecordUseStopsAtMaxUses(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	tokens := repository.NewUploadTokenRepository(conn)

	agent := newAgent(t, agents, "finn@example.com", "finn")

	now := time.Now().UTC()
	token := &model.UploadToken{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Token:     "tok-1",
		Label:     "Photographer",
		ExpiresAt: now.Add(time.Hour),
		Active:    true,
		MaxUses:   1,
		CreatedAt: now,
	}
	require.NoError(t, tokens.Create(token))

	ok, err := tokens.RecordUse(token.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tokens.RecordUse(token.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := tokens.ByToken("tok-1")
	require.NoError(t, err)
	assert.Equal(t, 1, found.UseCount)
	assert.False(t, found.IsValid())

	_, err = tokens.ByToken("unknown")
	assert.ErrorIs(t, err, repository.ErrUploadTokenNotFound)
}

func TestUploadTokenRecordUseRejectsExpired(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	tokens := repository.NewUploadTokenRepository(conn)

	agent := newAgent(t, agents, "gus@example.com", "gus")

	now := time.Now().UTC()
	token := &model.UploadToken{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Token:     "tok-expired",
		ExpiresAt: now.Add(-time.Minute),
		Active:    true,
		MaxUses:   3,
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, tokens.Create(token))

	ok, err := tokens.RecordUse(token.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPropertyKeepsUploadTokenLink(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	properties := repository.NewPropertyRepository(conn)
	tokens := repository.NewUploadTokenRepository(conn)

	agent := newAgent(t, agents, "hal@example.com", "hal")

	now := time.Now().UTC()
	token := &model.UploadToken{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Token:     "tok-link",
		ExpiresAt: now.Add(-time.Minute),
		Active:    true,
		MaxUses:   2,
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, tokens.Create(token))

	p := newProperty(t, properties, agent.ID, "barn", func(p *model.Property) {
		p.CreatedVia = model.CreatedViaUploadToken
		p.UploadTokenID = &token.ID
	})

	found, err := properties.ByID(p.ID)
	require.NoError(t, err)
	assert.True(t, found.CreatedWithToken(token.ID))
	assert.False(t, found.CreatedWithToken("other"))

	// Removing the token keeps the listing and clears the link.
	deleted, err := tokens.DeleteStale(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	found, err = properties.ByID(p.ID)
	require.NoError(t, err)
	assert.Nil(t, found.UploadTokenID)
}

func TestUploadTokenDeleteStale(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	tokens := repository.NewUploadTokenRepository(conn)
	agent := newAgent(t, agents, "gia@example.com", "gia")

	now := time.Now().UTC()
	create := func(token string, expiresAt time.Time, active bool) {
		require.NoError(t, tokens.Create(&model.UploadToken{
			ID: uuid.NewString(), AgentID: agent.ID, Token: token,
			ExpiresAt: expiresAt, Active: active, MaxUses: 1, CreatedAt: now.Add(-48 * time.Hour),
		}))
	}
	create("expired", now.Add(-47*time.Hour), true)
	create("deactivated", now.Add(time.Hour), false)
	create("live", now.Add(time.Hour), true)

	deleted, err := tokens.DeleteStale(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := tokens.ListByAgent(agent.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "live", remaining[0].Token)
}

func TestLoginTokens(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	tokens := repository.NewTokenRepository(conn)
	agent := newAgent(t, agents, "lena@example.com", "lena")

	now := time.Now().UTC()
	issue := func(value string, expiresAt time.Time) {
		require.NoError(t, tokens.Replace(&model.Token{
			AgentID: agent.ID, Type: model.TokenTypeMagicLink, Token: value, ExpiresAt: expiresAt,
		}))
	}

	issue("first", now.Add(time.Hour))
	issue("second", now.Add(time.Hour))

	_, err := tokens.Consume("first", model.TokenTypeMagicLink, now)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound, "replaced tokens are revoked")

	_, err = tokens.Consume("second", "email_verify", now)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound, "type must match")

	consumed, err := tokens.Consume("second", model.TokenTypeMagicLink, now)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, consumed.AgentID)
	require.NotNil(t, consumed.UsedAt)

	_, err = tokens.Consume("second", model.TokenTypeMagicLink, now)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound, "tokens are single use")

	issue("stale", now.Add(-time.Minute))
	_, err = tokens.Consume("stale", model.TokenTypeMagicLink, now)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	purged, err := tokens.Purge(now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
}

func TestCurrencyDefaultFirst(t *testing.T) {
	conn := db.OpenTest(t)
	currencies := repository.NewCurrencyRepository(conn)

	for _, c := range []*model.Currency{
		{Code: "EUR", Symbol: "€", Name: "Euro"},
		{Code: "USD", Symbol: "$", Name: "US Dollar", IsDefault: true},
		{Code: "BRL", Symbol: "R$", Name: "Brazilian Real"},
	} {
		require.NoError(t, currencies.Upsert(c))
	}

	all, err := currencies.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"USD", "BRL", "EUR"}, []string{all[0].Code, all[1].Code, all[2].Code})

	require.NoError(t, currencies.SetDefault("EUR"))
	def, err := currencies.Default()
	require.NoError(t, err)
	assert.Equal(t, "EUR", def.Code)

	assert.ErrorIs(t, currencies.SetDefault("XXX"), repository.ErrCurrencyNotFound)
}

func TestCustomFieldOrderingAndKeys(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	fields := repository.NewCustomFieldRepository(conn)
	agent := newAgent(t, agents, "hal@example.com", "hal")

	now := time.Now().UTC()
	create := func(key string, position int) *model.CustomField {
		f := &model.CustomField{
			ID: uuid.NewString(), AgentID: agent.ID,
			PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale,
			Key: key, Name: key, Type: model.CustomFieldTypeBoolean, Position: position,
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, fields.Create(f))
		return f
	}
	pool := create("pool", 1)
	create("garage", 0)

	err := fields.Create(&model.CustomField{
		ID: uuid.NewString(), AgentID: agent.ID,
		PropertyType: model.PropertyTypeHouse, ListingType: model.ListingTypeSale,
		Key: "pool", Name: "Pool", Type: model.CustomFieldTypeText,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateFieldKey)

	listed, err := fields.List(agent.ID, model.PropertyTypeHouse, model.ListingTypeSale)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "garage", listed[0].Key)

	require.NoError(t, fields.UpdatePosition(pool.ID, -1))
	listed, err = fields.List(agent.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "pool", listed[0].Key)

	count, err := fields.Count(agent.ID, model.PropertyTypeHouse, model.ListingTypeRent)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCustomFieldCreateCapped(t *testing.T) {
	conn := db.OpenTest(t)
	agents := repository.NewAgentRepository(conn)
	fields := repository.NewCustomFieldRepository(conn)
	agent := newAgent(t, agents, "ida@example.com", "ida")

	now := time.Now().UTC()
	field := func(key string) *model.CustomField {
		return &model.CustomField{
			ID: uuid.NewString(), AgentID: agent.ID,
			PropertyType: model.PropertyTypeLand, ListingType: model.ListingTypeSale,
			Key: key, Name: key, Type: model.CustomFieldTypeText, Options: model.StringList{},
			CreatedAt: now, UpdatedAt: now,
		}
	}

	for i, key := range []string{"soil", "access"} {
		f := field(key)
		require.NoError(t, fields.CreateCapped(f, 2))
		assert.Equal(t, i, f.Position)
	}

	assert.ErrorIs(t, fields.CreateCapped(field("zoning"), 2), repository.ErrCustomFieldsFull)
	assert.ErrorIs(t, fields.CreateCapped(field("soil"), 3), repository.ErrDuplicateFieldKey)

	orphan := field("orphan")
	orphan.AgentID = "missing"
	assert.ErrorIs(t, fields.CreateCapped(orphan, 3), repository.ErrAgentNotFound)

	count, err := fields.Count(agent.ID, model.PropertyTypeLand, model.ListingTypeSale)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
