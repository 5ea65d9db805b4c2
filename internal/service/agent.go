package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrActiveSubscription = errors.New("cannot delete account with active subscription")
)

type AgentService struct {
	agentRepo           repository.AgentRepository
	propertyRepo        repository.PropertyRepository
	fileService         *FileService
	emailService        *EmailService
	subscriptionService *SubscriptionService
	videos              VideoPlatform
}

func NewAgentService(
	agentRepo repository.AgentRepository,
	propertyRepo repository.PropertyRepository,
	fileService *FileService,
	emailService *EmailService,
	subscriptionService *SubscriptionService,
	videos VideoPlatform,
) *AgentService {
	return &AgentService{
		agentRepo:           agentRepo,
		propertyRepo:        propertyRepo,
		fileService:         fileService,
		emailService:        emailService,
		subscriptionService: subscriptionService,
		videos:              videos,
	}
}

// Create registers a new agent on the free plan with the free AI allowance.
func (s *AgentService) Create(email, name string, verified bool) (*model.Agent, error) {
	now := time.Now()

	base := name
	if base == "" {
		base = strings.SplitN(email, "@", 2)[0]
	}
	username, err := uniqueSlug(base, "agent", func(candidate string) (bool, error) {
		return s.agentRepo.UsernameExists(candidate, "")
	})
	if err != nil {
		return nil, err
	}

	agent := &model.Agent{
		ID:                uuid.New().String(),
		Email:             email,
		Name:              strings.TrimSpace(name),
		Username:          username,
		Locale:            model.DefaultLocale,
		WatermarkPosition: model.WatermarkBottomRight,
		WatermarkOpacity:  0.5,
		AICredits:         model.LimitsForPlan(model.SubscriptionPlanFree).AICredits,
		CreditsResetAt:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if verified {
		agent.EmailVerifiedAt = &now
	}

	err = s.agentRepo.Create(agent)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	err = s.subscriptionService.CreateFreeSubscription(agent.ID)
	if err != nil {
		slog.Warn("failed to create free subscription", "error", err, "agent_id", agent.ID)
		// Don't fail agent creation
	}

	return agent, nil
}

func (s *AgentService) ByID(id string) (*model.Agent, error) {
	return s.agentRepo.ByID(id)
}

// UpdateAgentInput is a partial update; nil fields are left unchanged.
type UpdateAgentInput struct {
	Name              *string  `json:"name" validate:"omitempty,max=100"`
	Username          *string  `json:"username" validate:"omitempty,max=60"`
	Phone             *string  `json:"phone" validate:"omitempty,max=40"`
	Bio               *string  `json:"bio" validate:"omitempty,max=2000"`
	Locale            *string  `json:"locale"`
	BrandColor        *string  `json:"brand_color" validate:"omitempty,brandcolor"`
	WatermarkEnabled  *bool    `json:"watermark_enabled"`
	WatermarkPosition *string  `json:"watermark_position"`
	WatermarkOpacity  *float64 `json:"watermark_opacity" validate:"omitempty,gte=0,lte=1"`
}

func (s *AgentService) Update(agentID string, in UpdateAgentInput) (*model.Agent, error) {
	err := validateInput(in)
	if err != nil {
		return nil, err
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, &ValidationError{Err: err}
		}
		agent.Name = name
	}
	if in.Username != nil {
		username := validation.Slugify(*in.Username)
		if username == "" {
			return nil, invalidf("username must contain letters or digits")
		}
		if username != agent.Username {
			taken, err := s.agentRepo.UsernameExists(username, agent.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if taken {
				return nil, ErrUsernameTaken
			}
			agent.Username = username
		}
	}
	if in.Phone != nil {
		agent.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		agent.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Locale != nil {
		if !model.IsSupportedLocale(*in.Locale) {
			return nil, invalidf("locale must be one of: %s", strings.Join(model.SupportedLocales, ", "))
		}
		agent.Locale = *in.Locale
	}
	if in.BrandColor != nil {
		agent.BrandColor = strings.ToLower(*in.BrandColor)
	}
	if in.WatermarkEnabled != nil {
		agent.WatermarkEnabled = *in.WatermarkEnabled
	}
	if in.WatermarkPosition != nil {
		if !model.IsWatermarkPosition(*in.WatermarkPosition) {
			return nil, invalidf("watermark_position must be one of: %s", strings.Join(model.WatermarkPositions, ", "))
		}
		agent.WatermarkPosition = *in.WatermarkPosition
	}
	if in.WatermarkOpacity != nil {
		agent.WatermarkOpacity = *in.WatermarkOpacity
	}

	agent.UpdatedAt = time.Now()
	err = s.agentRepo.Update(agent)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	return agent, nil
}

// UploadLogo stores a new logo and removes the previous one.
func (s *AgentService) UploadLogo(agentID string, header *multipart.FileHeader) (*model.Agent, error) {
	contentType, err := validation.ValidateFile(header, validation.LogoConstraints)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return nil, err
	}

	previous, err := s.fileService.Logo(agentID)
	if err != nil && !errors.Is(err, repository.ErrFileNotFound) {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	logo, err := s.fileService.Upload(UploadInput{
		AgentID:      agentID,
		OwnerType:    model.FileOwnerAgent,
		OwnerID:      agentID,
		FileType:     model.FileTypeLogo,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
	})
	if err != nil {
		return nil, err
	}

	agent.LogoURL = logo.URL
	agent.UpdatedAt = time.Now()
	err = s.agentRepo.Update(agent)
	if err != nil {
		return nil, fmt.Errorf("failed to save logo: %w", err)
	}

	if previous != nil {
		err = s.fileService.Delete(previous.ID)
		if err != nil {
			slog.Warn("failed to delete previous logo", "error", err, "agent_id", agentID, "file_id", previous.ID)
		}
	}

	return agent, nil
}

// PublicProfile returns an agent by username with their active listings.
func (s *AgentService) PublicProfile(username string) (*model.Agent, []*model.Property, error) {
	agent, err := s.agentRepo.ByUsername(username)
	if err != nil {
		return nil, nil, err
	}

	properties, err := s.propertyRepo.ActiveByAgent(agent.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list properties: %w", err)
	}

	return agent, properties, nil
}

func (s *AgentService) DeleteAccount(ctx context.Context, agentID string) error {
	// Check if agent has an active paid subscription or current period is still running
	subscription, err := s.subscriptionService.Subscription(agentID)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}

	if subscription.PlanID != model.SubscriptionPlanFree &&
		(subscription.Status == model.SubscriptionStatusActive ||
			(subscription.CurrentPeriodEnd != nil && subscription.CurrentPeriodEnd.After(time.Now()))) {
		return ErrActiveSubscription
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return fmt.Errorf("failed to get agent: %w", err)
	}

	properties, err := s.propertyRepo.AllByAgent(agentID)
	if err != nil {
		return fmt.Errorf("failed to list properties: %w", err)
	}
	for _, property := range properties {
		if property.VideoUID == "" {
			continue
		}
		err = s.videos.Delete(ctx, property.VideoUID)
		if err != nil {
			slog.Warn("failed to delete property video", "error", err, "property_id", property.ID, "video_uid", property.VideoUID)
		}
	}

	err = s.fileService.DeleteAllAgentFilesFromStorage(agentID)
	if err != nil {
		// Log warning but don't fail - orphaned files are better than failed deletion
		slog.Warn("failed to delete agent files from storage", "agent_id", agentID, "error", err)
	}

	err = s.emailService.SendAccountDeletedEmail(agent.Email, agent.Name)
	if err != nil {
		slog.Warn("failed to send account deleted email", "agent_id", agentID, "email", agent.Email, "error", err)
	}

	// Foreign key CASCADE removes properties, custom fields, upload tokens,
	// tokens, files and the subscription
	err = s.agentRepo.Delete(agentID)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	slog.Info("agent deleted", "agent_id", agentID, "properties", len(properties))
	return nil
}
