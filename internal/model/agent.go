package model

import (
	"slices"
	"time"
)

const (
	WatermarkTopLeft     = "top-left"
	WatermarkTopRight    = "top-right"
	WatermarkBottomLeft  = "bottom-left"
	WatermarkBottomRight = "bottom-right"
	WatermarkCenter      = "center"
)

const DefaultLocale = "en"

var (
	SupportedLocales   = []string{"en", "es", "fr", "de", "pt"}
	WatermarkPositions = []string{WatermarkTopLeft, WatermarkTopRight, WatermarkBottomLeft, WatermarkBottomRight, WatermarkCenter}
)

type Agent struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    *string    `db:"password_hash" json:"-"` // Nullable for passwordless agents
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`

	// Public profile
	Name     string `db:"name" json:"name"`
	Username string `db:"username" json:"username"`
	Phone    string `db:"phone" json:"phone"`
	Bio      string `db:"bio" json:"bio"`
	LogoURL  string `db:"logo_url" json:"logo_url"`
	Locale   string `db:"locale" json:"locale"`

	// Branding, applied client-side when exporting photos
	BrandColor        string  `db:"brand_color" json:"brand_color"`
	WatermarkEnabled  bool    `db:"watermark_enabled" json:"watermark_enabled"`
	WatermarkPosition string  `db:"watermark_position" json:"watermark_position"`
	WatermarkOpacity  float64 `db:"watermark_opacity" json:"watermark_opacity"`

	// AI quota
	AICredits      int       `db:"ai_credits" json:"ai_credits"`
	AICreditsUsed  int       `db:"ai_credits_used" json:"ai_credits_used"`
	CreditsResetAt time.Time `db:"credits_reset_at" json:"credits_reset_at"`

	// Facebook page connection
	FacebookUserToken string `db:"facebook_user_token" json:"-"`
	FacebookPageID    string `db:"facebook_page_id" json:"facebook_page_id"`
	FacebookPageName  string `db:"facebook_page_name" json:"facebook_page_name"`
	FacebookPageToken string `db:"facebook_page_token" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Agent) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

func (a *Agent) CreditsRemaining() int {
	remaining := a.AICredits - a.AICreditsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (a *Agent) FacebookConnected() bool {
	return a.FacebookPageID != "" && a.FacebookPageToken != ""
}

// DisplayName falls back to the username when no name was set.
func (a *Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username
}

func IsSupportedLocale(locale string) bool {
	return slices.Contains(SupportedLocales, locale)
}

func IsWatermarkPosition(position string) bool {
	return slices.Contains(WatermarkPositions, position)
}

// PublicAgent is the subset of an agent shown on public pages.
type PublicAgent struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Phone      string `json:"phone,omitempty"`
	Bio        string `json:"bio,omitempty"`
	LogoURL    string `json:"logo_url,omitempty"`
	BrandColor string `json:"brand_color,omitempty"`
}

func (a *Agent) Public() PublicAgent {
	return PublicAgent{
		Name:       a.DisplayName(),
		Username:   a.Username,
		Phone:      a.Phone,
		Bio:        a.Bio,
		LogoURL:    a.LogoURL,
		BrandColor: a.BrandColor,
	}
}
