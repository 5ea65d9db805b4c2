package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

var (
	ErrUploadTokenInactive = errors.New("upload link has been deactivated")
	ErrUploadTokenExpired  = errors.New("upload link has expired")
	ErrUploadTokenUsedUp   = errors.New("upload link has already been used")
	ErrUploadTokenScope    = errors.New("upload link does not grant access to this property")
)

const maxUploadTokenUses = 50

type UploadTokenService struct {
	uploadTokenRepo repository.UploadTokenRepository
	propertyRepo    repository.PropertyRepository
	agentRepo       repository.AgentRepository
	customFieldRepo repository.CustomFieldRepository
	currencyRepo    repository.CurrencyRepository
	appURL          string
	defaultExpiry   time.Duration
	maxExpiry       time.Duration
}

func NewUploadTokenService(
	uploadTokenRepo repository.UploadTokenRepository,
	propertyRepo repository.PropertyRepository,
	agentRepo repository.AgentRepository,
	customFieldRepo repository.CustomFieldRepository,
	currencyRepo repository.CurrencyRepository,
	appURL string,
	defaultExpiry time.Duration,
	maxExpiry time.Duration,
) *UploadTokenService {
	return &UploadTokenService{
		uploadTokenRepo: uploadTokenRepo,
		propertyRepo:    propertyRepo,
		agentRepo:       agentRepo,
		customFieldRepo: customFieldRepo,
		currencyRepo:    currencyRepo,
		appURL:          strings.TrimRight(appURL, "/"),
		defaultExpiry:   defaultExpiry,
		maxExpiry:       maxExpiry,
	}
}

// UploadTokenView is an upload token as shown to its agent.
type UploadTokenView struct {
	*model.UploadToken
	Valid bool   `json:"valid"`
	URL   string `json:"url"`
}

func (s *UploadTokenService) view(t *model.UploadToken) *UploadTokenView {
	return &UploadTokenView{
		UploadToken: t,
		Valid:       t.IsValid(),
		URL:         s.appURL + "/upload/" + t.Token,
	}
}

type CreateUploadTokenInput struct {
	Label          string `json:"label" validate:"max=100"`
	ExpiresInHours *int   `json:"expires_in_hours" validate:"omitempty,gte=1"`
	MaxUses        *int   `json:"max_uses" validate:"omitempty,gte=1,lte=50"`
}

func (s *UploadTokenService) Create(agentID string, in CreateUploadTokenInput) (*UploadTokenView, error) {
	in.Label = strings.TrimSpace(in.Label)
	err := validateInput(in)
	if err != nil {
		return nil, err
	}

	expiry := s.defaultExpiry
	if in.ExpiresInHours != nil {
		expiry = time.Duration(*in.ExpiresInHours) * time.Hour
	}
	if expiry > s.maxExpiry {
		expiry = s.maxExpiry
	}

	maxUses := 1
	if in.MaxUses != nil {
		maxUses = min(*in.MaxUses, maxUploadTokenUses)
	}

	value, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	token := &model.UploadToken{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Token:     value,
		Label:     in.Label,
		ExpiresAt: now.Add(expiry),
		Active:    true,
		MaxUses:   maxUses,
		CreatedAt: now,
	}

	err = s.uploadTokenRepo.Create(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload token: %w", err)
	}

	slog.Info("upload token created", "agent_id", agentID, "upload_token_id", token.ID, "max_uses", maxUses, "expires_at", token.ExpiresAt)
	return s.view(token), nil
}

func (s *UploadTokenService) List(agentID string) ([]*UploadTokenView, error) {
	tokens, err := s.uploadTokenRepo.ListByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload tokens: %w", err)
	}

	views := make([]*UploadTokenView, len(tokens))
	for i, t := range tokens {
		views[i] = s.view(t)
	}
	return views, nil
}

// Deactivate switches a token off and keeps the row for auditing.
func (s *UploadTokenService) Deactivate(agentID, tokenID string) error {
	token, err := s.uploadTokenRepo.ByID(tokenID)
	if err != nil {
		return err
	}
	if token.AgentID != agentID {
		return repository.ErrUploadTokenNotFound
	}

	err = s.uploadTokenRepo.Deactivate(token.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate upload token: %w", err)
	}

	slog.Info("upload token deactivated", "agent_id", agentID, "upload_token_id", token.ID)
	return nil
}

// lookup applies the checks shared by every use of a token, in order:
// unknown, inactive, expired.
func (s *UploadTokenService) lookup(value string) (*model.UploadToken, error) {
	if value == "" {
		return nil, repository.ErrUploadTokenNotFound
	}

	token, err := s.uploadTokenRepo.ByToken(value)
	if err != nil {
		return nil, err
	}
	if !token.Active {
		return token, ErrUploadTokenInactive
	}
	if token.IsExpired() {
		return token, ErrUploadTokenExpired
	}
	return token, nil
}

// Authorize checks a token for creating a property.
func (s *UploadTokenService) Authorize(value string) (*model.UploadToken, error) {
	token, err := s.lookup(value)
	if err != nil {
		return nil, err
	}
	if token.IsUsedUp() {
		return nil, ErrUploadTokenUsedUp
	}
	return token, nil
}

// AuthorizeProperty checks a token for adding photos to a property. Only
// properties the token created qualify, and only while the token is still
// active and unexpired.
func (s *UploadTokenService) AuthorizeProperty(value, propertyID string) (*model.UploadToken, error) {
	token, err := s.lookup(value)
	if err != nil {
		return nil, err
	}

	property, err := s.propertyRepo.ByID(propertyID)
	if errors.Is(err, repository.ErrPropertyNotFound) {
		return nil, ErrUploadTokenScope
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if !property.CreatedWithToken(token.ID) {
		return nil, ErrUploadTokenScope
	}
	return token, nil
}

// UploadForm is what the public upload page needs to render its form.
type UploadForm struct {
	Valid         bool                 `json:"valid"`
	Label         string               `json:"label"`
	ExpiresAt     time.Time            `json:"expires_at"`
	RemainingUses int                  `json:"remaining_uses"`
	Agent         UploadFormAgent      `json:"agent"`
	CustomFields  []*model.CustomField `json:"custom_fields"`
	Currencies    []*model.Currency    `json:"currencies"`
}

type UploadFormAgent struct {
	Name       string `json:"name"`
	Logo       string `json:"logo"`
	BrandColor string `json:"brand_color,omitempty"`
}

// Validate resolves a token for the public upload page.
func (s *UploadTokenService) Validate(value string) (*UploadForm, error) {
	token, err := s.Authorize(value)
	if err != nil {
		return nil, err
	}

	agent, err := s.agentRepo.ByID(token.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	fields, err := s.customFieldRepo.List(agent.ID, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get custom fields: %w", err)
	}

	currencies, err := s.currencyRepo.All()
	if err != nil {
		return nil, fmt.Errorf("failed to get currencies: %w", err)
	}

	return &UploadForm{
		Valid:         true,
		Label:         token.Label,
		ExpiresAt:     token.ExpiresAt,
		RemainingUses: token.MaxUses - token.UseCount,
		Agent: UploadFormAgent{
			Name:       agent.DisplayName(),
			Logo:       agent.LogoURL,
			BrandColor: agent.BrandColor,
		},
		CustomFields: fields,
		Currencies:   currencies,
	}, nil
}

// Cleanup deletes tokens expired or deactivated for longer than olderThan.
func (s *UploadTokenService) Cleanup(olderThan time.Duration) (int64, error) {
	return s.uploadTokenRepo.DeleteStale(time.Now().Add(-olderThan))
}

// IsUploadTokenRejection reports whether err is one of the token checks
// failing for a known token.
func IsUploadTokenRejection(err error) bool {
	return errors.Is(err, ErrUploadTokenInactive) ||
		errors.Is(err, ErrUploadTokenExpired) ||
		errors.Is(err, ErrUploadTokenUsedUp) ||
		errors.Is(err, ErrUploadTokenScope)
}
