package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrCustomFieldNotFound = errors.New("custom field not found")
	ErrDuplicateFieldKey   = errors.New("custom field key already exists")
	ErrCustomFieldsFull    = errors.New("custom field limit reached")
)

type CustomFieldRepository interface {
	Create(field *model.CustomField) error
	// CreateCapped appends the field after the existing ones of its combination
	// unless that combination already holds limit fields.
	CreateCapped(field *model.CustomField, limit int) error
	ByID(id string) (*model.CustomField, error)
	// List returns the agent's fields ordered by position; empty types match all.
	List(agentID, propertyType, listingType string) ([]*model.CustomField, error)
	Count(agentID, propertyType, listingType string) (int, error)
	KeyExists(agentID, propertyType, listingType, key string) (bool, error)
	Update(field *model.CustomField) error
	UpdatePosition(id string, position int) error
	Delete(id string) error
}

type customFieldRepository struct {
	db *sqlx.DB
}

func NewCustomFieldRepository(db *sqlx.DB) CustomFieldRepository {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) Create(f *model.CustomField) error {
	return insertCustomField(r.db, f)
}

func (r *customFieldRepository) CreateCapped(f *model.CustomField, limit int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Serializes concurrent creates for the same agent until commit.
	result, err := tx.Exec(`UPDATE agents SET updated_at = updated_at WHERE id = $1`, f.AgentID)
	err = expectRow(result, err, ErrAgentNotFound)
	if err != nil {
		return err
	}

	var count int
	err = tx.Get(&count, `SELECT COUNT(*) FROM custom_fields WHERE agent_id = $1 AND property_type = $2 AND listing_type = $3`,
		f.AgentID, f.PropertyType, f.ListingType)
	if err != nil {
		return fmt.Errorf("count custom fields: %w", err)
	}
	if count >= limit {
		return ErrCustomFieldsFull
	}

	f.Position = count
	err = insertCustomField(tx, f)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertCustomField(db sqlx.Execer, f *model.CustomField) error {
	query := `
		INSERT INTO custom_fields (
			id, agent_id, property_type, listing_type, field_key, name, type,
			icon, options, position, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := db.Exec(query,
		f.ID, f.AgentID, f.PropertyType, f.ListingType, f.Key, f.Name, f.Type,
		f.Icon, f.Options, f.Position, f.CreatedAt, f.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateFieldKey
	}

	return err
}

func (r *customFieldRepository) ByID(id string) (*model.CustomField, error) {
	field := &model.CustomField{}
	query := `SELECT * FROM custom_fields WHERE id = $1`

	err := r.db.Get(field, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrCustomFieldNotFound
	}

	return field, err
}

func (r *customFieldRepository) List(agentID, propertyType, listingType string) ([]*model.CustomField, error) {
	fields := []*model.CustomField{}
	query := `SELECT * FROM custom_fields WHERE agent_id = $1`
	args := []any{agentID}

	if propertyType != "" {
		args = append(args, propertyType)
		query += fmt.Sprintf(" AND property_type = $%d", len(args))
	}
	if listingType != "" {
		args = append(args, listingType)
		query += fmt.Sprintf(" AND listing_type = $%d", len(args))
	}
	query += " ORDER BY property_type, listing_type, position, created_at"

	err := r.db.Select(&fields, query, args...)
	return fields, err
}

func (r *customFieldRepository) Count(agentID, propertyType, listingType string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM custom_fields WHERE agent_id = $1 AND property_type = $2 AND listing_type = $3`

	err := r.db.Get(&count, query, agentID, propertyType, listingType)
	return count, err
}

func (r *customFieldRepository) KeyExists(agentID, propertyType, listingType, key string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM custom_fields
		WHERE agent_id = $1 AND property_type = $2 AND listing_type = $3 AND field_key = $4
	`

	err := r.db.Get(&count, query, agentID, propertyType, listingType, key)
	return count > 0, err
}

func (r *customFieldRepository) Update(f *model.CustomField) error {
	query := `UPDATE custom_fields SET name = $1, icon = $2, options = $3, updated_at = $4 WHERE id = $5`

	result, err := r.db.Exec(query, f.Name, f.Icon, f.Options, f.UpdatedAt, f.ID)
	return expectRow(result, err, ErrCustomFieldNotFound)
}

func (r *customFieldRepository) UpdatePosition(id string, position int) error {
	query := `UPDATE custom_fields SET position = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, position, time.Now(), id)
	return expectRow(result, err, ErrCustomFieldNotFound)
}

func (r *customFieldRepository) Delete(id string) error {
	query := `DELETE FROM custom_fields WHERE id = $1`

	result, err := r.db.Exec(query, id)
	return expectRow(result, err, ErrCustomFieldNotFound)
}
