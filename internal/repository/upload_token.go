package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrUploadTokenNotFound = errors.New("upload token not found")
)

type UploadTokenRepository interface {
	Create(token *model.UploadToken) error
	ByID(id string) (*model.UploadToken, error)
	ByToken(token string) (*model.UploadToken, error)
	ListByAgent(agentID string) ([]*model.UploadToken, error)
	Deactivate(id string) error
	RecordUse(id string, at time.Time) (bool, error)
	DeleteStale(cutoff time.Time) (int64, error)
}

type uploadTokenRepository struct {
	db *sqlx.DB
}

func NewUploadTokenRepository(db *sqlx.DB) UploadTokenRepository {
	return &uploadTokenRepository{db: db}
}

func (r *uploadTokenRepository) Create(t *model.UploadToken) error {
	query := `
		INSERT INTO upload_tokens (id, agent_id, token, label, expires_at, active, max_uses, use_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(query,
		t.ID, t.AgentID, t.Token, t.Label, t.ExpiresAt, t.Active, t.MaxUses, t.UseCount, t.CreatedAt,
	)
	return err
}

func (r *uploadTokenRepository) ByID(id string) (*model.UploadToken, error) {
	token := &model.UploadToken{}
	query := `SELECT * FROM upload_tokens WHERE id = $1`

	err := r.db.Get(token, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUploadTokenNotFound
	}

	return token, err
}

func (r *uploadTokenRepository) ByToken(token string) (*model.UploadToken, error) {
	t := &model.UploadToken{}
	query := `SELECT * FROM upload_tokens WHERE token = $1`

	err := r.db.Get(t, query, token)
	if err == sql.ErrNoRows {
		return nil, ErrUploadTokenNotFound
	}

	return t, err
}

func (r *uploadTokenRepository) ListByAgent(agentID string) ([]*model.UploadToken, error) {
	tokens := []*model.UploadToken{}
	query := `SELECT * FROM upload_tokens WHERE agent_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&tokens, query, agentID)
	return tokens, err
}

func (r *uploadTokenRepository) Deactivate(id string) error {
	query := `UPDATE upload_tokens SET active = $1 WHERE id = $2`

	result, err := r.db.Exec(query, false, id)
	return expectRow(result, err, ErrUploadTokenNotFound)
}

// RecordUse atomically bumps the use counter. Only succeeds while the token is
// active, unexpired and has uses left, so two concurrent creations cannot
// both spend the last use.
func (r *uploadTokenRepository) RecordUse(id string, at time.Time) (bool, error) {
	query := `
		UPDATE upload_tokens
		SET use_count = use_count + 1,
		    last_used_at = $1
		WHERE id = $2
		AND active = $3
		AND use_count < max_uses
		AND expires_at > $1
	`

	result, err := r.db.Exec(query, at, id, true)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// DeleteStale removes tokens that expired before cutoff or were deactivated before cutoff.
func (r *uploadTokenRepository) DeleteStale(cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM upload_tokens
		WHERE expires_at < $1
		   OR (active = $2 AND created_at < $1)
	`

	result, err := r.db.Exec(query, cutoff, false)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
