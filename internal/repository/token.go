package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrTokenNotFound = errors.New("token not found")
)

// TokenRepository stores mailed login tokens.
type TokenRepository interface {
	// Replace stores token and revokes the agent's other unused tokens of the same type.
	Replace(token *model.Token) error
	// Consume marks a live token as used. A second consumer gets ErrTokenNotFound.
	Consume(token, tokenType string, now time.Time) (*model.Token, error)
	// Purge deletes tokens that were used or expired before cutoff.
	Purge(cutoff time.Time) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Replace(token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM tokens WHERE agent_id = $1 AND type = $2 AND used_at IS NULL`, token.AgentID, token.Type)
	if err != nil {
		return fmt.Errorf("revoke previous tokens: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO tokens (id, agent_id, type, token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.AgentID, token.Type, token.Token, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return tx.Commit()
}

func (r *tokenRepository) Consume(token, tokenType string, now time.Time) (*model.Token, error) {
	t := &model.Token{}
	err := r.db.Get(t, `
		UPDATE tokens SET used_at = $1
		WHERE token = $2 AND type = $3 AND used_at IS NULL AND expires_at > $1
		RETURNING *`, now, token, tokenType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tokenRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM tokens WHERE used_at < $1 OR expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
