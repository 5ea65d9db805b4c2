package model

import "time"

// Token is a single-use credential mailed to an agent.
type Token struct {
	ID        string     `db:"id"`
	AgentID   string     `db:"agent_id"`
	Type      string     `db:"type"`
	Token     string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

const TokenTypeMagicLink = "magic_link"
