package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrAgentNotFound     = errors.New("agent not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

type AgentRepository interface {
	Create(agent *model.Agent) error
	ByID(id string) (*model.Agent, error)
	ByEmail(email string) (*model.Agent, error)
	ByUsername(username string) (*model.Agent, error)
	UsernameExists(username, excludeID string) (bool, error)
	Usernames() ([]string, error)
	Update(agent *model.Agent) error
	UpdatePassword(id string, hash string) error
	MarkEmailVerified(id string, at time.Time) error
	UpdateFacebook(agent *model.Agent) error
	ConsumeCredits(id string, amount int) (bool, error)
	ResetCredits(id string, credits int, resetAt time.Time) error
	Delete(id string) error
}

type agentRepository struct {
	db *sqlx.DB
}

func NewAgentRepository(db *sqlx.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(agent *model.Agent) error {
	query := `
		INSERT INTO agents (
			id, email, password_hash, email_verified_at, name, username, locale,
			watermark_position, watermark_opacity, ai_credits, ai_credits_used,
			credits_reset_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(query,
		agent.ID,
		agent.Email,
		agent.PasswordHash,
		agent.EmailVerifiedAt,
		agent.Name,
		agent.Username,
		agent.Locale,
		agent.WatermarkPosition,
		agent.WatermarkOpacity,
		agent.AICredits,
		agent.AICreditsUsed,
		agent.CreditsResetAt,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "username") {
			return ErrDuplicateUsername
		}
		return ErrDuplicateEmail
	}

	return err
}

func (r *agentRepository) ByID(id string) (*model.Agent, error) {
	agent := &model.Agent{}
	query := `SELECT * FROM agents WHERE id = $1`

	err := r.db.Get(agent, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}

	return agent, err
}

func (r *agentRepository) ByEmail(email string) (*model.Agent, error) {
	agent := &model.Agent{}
	query := `SELECT * FROM agents WHERE email = $1`

	err := r.db.Get(agent, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}

	return agent, err
}

func (r *agentRepository) ByUsername(username string) (*model.Agent, error) {
	agent := &model.Agent{}
	query := `SELECT * FROM agents WHERE username = $1`

	err := r.db.Get(agent, query, username)
	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}

	return agent, err
}

func (r *agentRepository) UsernameExists(username, excludeID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM agents WHERE username = $1 AND id != $2`

	err := r.db.Get(&count, query, username, excludeID)
	return count > 0, err
}

func (r *agentRepository) Usernames() ([]string, error) {
	var usernames []string
	query := `SELECT username FROM agents ORDER BY username`

	err := r.db.Select(&usernames, query)
	return usernames, err
}

func (r *agentRepository) Update(agent *model.Agent) error {
	query := `
		UPDATE agents
		SET name = $1,
		    username = $2,
		    phone = $3,
		    bio = $4,
		    logo_url = $5,
		    locale = $6,
		    brand_color = $7,
		    watermark_enabled = $8,
		    watermark_position = $9,
		    watermark_opacity = $10,
		    updated_at = $11
		WHERE id = $12
	`

	result, err := r.db.Exec(query,
		agent.Name,
		agent.Username,
		agent.Phone,
		agent.Bio,
		agent.LogoURL,
		agent.Locale,
		agent.BrandColor,
		agent.WatermarkEnabled,
		agent.WatermarkPosition,
		agent.WatermarkOpacity,
		agent.UpdatedAt,
		agent.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return expectRow(result, err, ErrAgentNotFound)
}

func (r *agentRepository) UpdatePassword(id string, hash string) error {
	query := `UPDATE agents SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, hash, time.Now(), id)
	return expectRow(result, err, ErrAgentNotFound)
}

func (r *agentRepository) MarkEmailVerified(id string, at time.Time) error {
	query := `UPDATE agents SET email_verified_at = $1 WHERE id = $2 AND email_verified_at IS NULL`

	_, err := r.db.Exec(query, at, id)
	return err
}

func (r *agentRepository) UpdateFacebook(agent *model.Agent) error {
	query := `
		UPDATE agents
		SET facebook_user_token = $1,
		    facebook_page_id = $2,
		    facebook_page_name = $3,
		    facebook_page_token = $4,
		    updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(query,
		agent.FacebookUserToken,
		agent.FacebookPageID,
		agent.FacebookPageName,
		agent.FacebookPageToken,
		time.Now(),
		agent.ID,
	)
	return expectRow(result, err, ErrAgentNotFound)
}

// ConsumeCredits atomically adds amount to the used counter.
// Returns false when the agent does not have enough credits left.
func (r *agentRepository) ConsumeCredits(id string, amount int) (bool, error) {
	query := `
		UPDATE agents
		SET ai_credits_used = ai_credits_used + $1
		WHERE id = $2
		AND ai_credits - ai_credits_used >= $1
	`

	result, err := r.db.Exec(query, amount, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *agentRepository) ResetCredits(id string, credits int, resetAt time.Time) error {
	query := `UPDATE agents SET ai_credits = $1, ai_credits_used = 0, credits_reset_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, credits, resetAt, id)
	return expectRow(result, err, ErrAgentNotFound)
}

func (r *agentRepository) Delete(id string) error {
	query := `DELETE FROM agents WHERE id = $1`

	result, err := r.db.Exec(query, id)
	return expectRow(result, err, ErrAgentNotFound)
}

// expectRow turns a zero-row write into notFound.
func expectRow(result sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
