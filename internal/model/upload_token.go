package model

import (
	"time"
)

type UploadToken struct {
	ID         string     `db:"id" json:"id"`
	AgentID    string     `db:"agent_id" json:"-"`
	Token      string     `db:"token" json:"token"`
	Label      string     `db:"label" json:"label"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Active     bool       `db:"active" json:"active"`
	MaxUses    int        `db:"max_uses" json:"max_uses"`
	UseCount   int        `db:"use_count" json:"use_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at"`
}

func (t *UploadToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *UploadToken) IsUsedUp() bool {
	return t.UseCount >= t.MaxUses
}

func (t *UploadToken) IsValid() bool {
	return t.Active && !t.IsExpired() && !t.IsUsedUp()
}
