package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrDuplicateSlug    = errors.New("slug already exists")
)

type PropertyRepository interface {
	Create(property *model.Property) error
	ByID(id string) (*model.Property, error)
	BySlug(slug string) (*model.Property, error)
	SlugExists(slug, excludeID string) (bool, error)
	List(agentID string, filter model.PropertyFilter) ([]*model.Property, int, error)
	AllByAgent(agentID string) ([]*model.Property, error)
	ActiveByAgent(agentID string) ([]*model.Property, error)
	AllActive() ([]*model.Property, error)
	CountByAgent(agentID string) (int, error)
	Update(property *model.Property) error
	UpdateStatus(id, status string) error
	IncrementViews(id string) error
	Delete(id string) error
}

type propertyRepository struct {
	db *sqlx.DB
}

func NewPropertyRepository(db *sqlx.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(p *model.Property) error {
	query := `
		INSERT INTO properties (
			id, agent_id, slug, title, description, price, currency,
			property_type, listing_type, bedrooms, bathrooms, area_m2,
			address, city, country, latitude, longitude,
			photos, marketing_images, custom_fields,
			status, views, created_via, upload_token_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20,
			$21, $22, $23, $24, $25, $26
		)
	`

	_, err := r.db.Exec(query,
		p.ID, p.AgentID, p.Slug, p.Title, p.Description, p.Price, p.Currency,
		p.PropertyType, p.ListingType, p.Bedrooms, p.Bathrooms, p.AreaM2,
		p.Address, p.City, p.Country, p.Latitude, p.Longitude,
		p.Photos, p.MarketingImages, p.CustomFields,
		p.Status, p.Views, p.CreatedVia, p.UploadTokenID, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}

	return err
}

func (r *propertyRepository) ByID(id string) (*model.Property, error) {
	property := &model.Property{}
	query := `SELECT * FROM properties WHERE id = $1`

	err := r.db.Get(property, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPropertyNotFound
	}

	return property, err
}

func (r *propertyRepository) BySlug(slug string) (*model.Property, error) {
	property := &model.Property{}
	query := `SELECT * FROM properties WHERE slug = $1`

	err := r.db.Get(property, query, slug)
	if err == sql.ErrNoRows {
		return nil, ErrPropertyNotFound
	}

	return property, err
}

func (r *propertyRepository) SlugExists(slug, excludeID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM properties WHERE slug = $1 AND id != $2`

	err := r.db.Get(&count, query, slug, excludeID)
	return count > 0, err
}

// List returns one page of an agent's properties, newest first, plus the total match count.
func (r *propertyRepository) List(agentID string, filter model.PropertyFilter) ([]*model.Property, int, error) {
	where := []string{"agent_id = $1"}
	args := []any{agentID}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.PropertyType != "" {
		add("property_type = $%d", filter.PropertyType)
	}
	if filter.ListingType != "" {
		add("listing_type = $%d", filter.ListingType)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(city) LIKE $%d OR LOWER(address) LIKE $%d)", n, n, n))
	}
	clause := strings.Join(where, " AND ")

	var total int
	err := r.db.Get(&total, `SELECT COUNT(*) FROM properties WHERE `+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT * FROM properties WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)+1, len(args)+2)
	args = append(args, filter.PerPage, filter.Offset())

	properties := []*model.Property{}
	err = r.db.Select(&properties, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return properties, total, nil
}

func (r *propertyRepository) AllByAgent(agentID string) ([]*model.Property, error) {
	properties := []*model.Property{}
	query := `SELECT * FROM properties WHERE agent_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&properties, query, agentID)
	return properties, err
}

func (r *propertyRepository) ActiveByAgent(agentID string) ([]*model.Property, error) {
	properties := []*model.Property{}
	query := `SELECT * FROM properties WHERE agent_id = $1 AND status = $2 ORDER BY created_at DESC`

	err := r.db.Select(&properties, query, agentID, model.PropertyStatusActive)
	return properties, err
}

func (r *propertyRepository) AllActive() ([]*model.Property, error) {
	properties := []*model.Property{}
	query := `SELECT * FROM properties WHERE status = $1 ORDER BY updated_at DESC`

	err := r.db.Select(&properties, query, model.PropertyStatusActive)
	return properties, err
}

func (r *propertyRepository) CountByAgent(agentID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM properties WHERE agent_id = $1`

	err := r.db.Get(&count, query, agentID)
	return count, err
}

func (r *propertyRepository) Update(p *model.Property) error {
	query := `
		UPDATE properties
		SET slug = $1,
		    title = $2,
		    description = $3,
		    price = $4,
		    currency = $5,
		    property_type = $6,
		    listing_type = $7,
		    bedrooms = $8,
		    bathrooms = $9,
		    area_m2 = $10,
		    address = $11,
		    city = $12,
		    country = $13,
		    latitude = $14,
		    longitude = $15,
		    photos = $16,
		    marketing_images = $17,
		    video_uid = $18,
		    video_status = $19,
		    video_playback_url = $20,
		    video_thumbnail_url = $21,
		    audio_url = $22,
		    audio_transcript = $23,
		    custom_fields = $24,
		    status = $25,
		    updated_at = $26
		WHERE id = $27
	`

	result, err := r.db.Exec(query,
		p.Slug, p.Title, p.Description, p.Price, p.Currency,
		p.PropertyType, p.ListingType, p.Bedrooms, p.Bathrooms, p.AreaM2,
		p.Address, p.City, p.Country, p.Latitude, p.Longitude,
		p.Photos, p.MarketingImages,
		p.VideoUID, p.VideoStatus, p.VideoPlaybackURL, p.VideoThumbnailURL,
		p.AudioURL, p.AudioTranscript, p.CustomFields,
		p.Status, p.UpdatedAt, p.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	return expectRow(result, err, ErrPropertyNotFound)
}

func (r *propertyRepository) UpdateStatus(id, status string) error {
	query := `UPDATE properties SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), id)
	return expectRow(result, err, ErrPropertyNotFound)
}

func (r *propertyRepository) IncrementViews(id string) error {
	query := `UPDATE properties SET views = views + 1 WHERE id = $1`

	result, err := r.db.Exec(query, id)
	return expectRow(result, err, ErrPropertyNotFound)
}

func (r *propertyRepository) Delete(id string) error {
	query := `DELETE FROM properties WHERE id = $1`

	result, err := r.db.Exec(query, id)
	return expectRow(result, err, ErrPropertyNotFound)
}
