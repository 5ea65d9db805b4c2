package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service/social"
)

var (
	ErrFacebookNotConnected     = errors.New("facebook account is not connected")
	ErrFacebookPageNotConnected = errors.New("no facebook page connected")
)

type FacebookService struct {
	publisher           PagePublisher
	agentRepo           repository.AgentRepository
	propertyService     *PropertyService
	subscriptionService *SubscriptionService
	appURL              string
}

func NewFacebookService(
	publisher PagePublisher,
	agentRepo repository.AgentRepository,
	propertyService *PropertyService,
	subscriptionService *SubscriptionService,
	appURL string,
) *FacebookService {
	return &FacebookService{
		publisher:           publisher,
		agentRepo:           agentRepo,
		propertyService:     propertyService,
		subscriptionService: subscriptionService,
		appURL:              strings.TrimRight(appURL, "/"),
	}
}

func (s *FacebookService) ConnectURL(state string) string {
	return s.publisher.AuthCodeURL(state)
}

func withoutTokens(pages []social.Page) []social.Page {
	out := make([]social.Page, len(pages))
	for i, p := range pages {
		out[i] = social.Page{ID: p.ID, Name: p.Name}
	}
	return out
}

// Connect stores the user token from the OAuth callback. A single managed
// page is selected right away.
func (s *FacebookService) Connect(ctx context.Context, agentID, code string) (*model.Agent, error) {
	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return nil, err
	}

	userToken, err := s.publisher.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	pages, err := s.publisher.Pages(ctx, userToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list facebook pages: %w", err)
	}

	agent.FacebookUserToken = userToken
	agent.FacebookPageID = ""
	agent.FacebookPageName = ""
	agent.FacebookPageToken = ""
	if len(pages) == 1 {
		agent.FacebookPageID = pages[0].ID
		agent.FacebookPageName = pages[0].Name
		agent.FacebookPageToken = pages[0].AccessToken
	}

	err = s.agentRepo.UpdateFacebook(agent)
	if err != nil {
		return nil, fmt.Errorf("failed to save facebook connection: %w", err)
	}

	slog.Info("facebook connected", "agent_id", agentID, "pages", len(pages), "page_id", agent.FacebookPageID)
	return agent, nil
}

// Pages lists the pages available to the stored user token.
func (s *FacebookService) Pages(ctx context.Context, agentID string) ([]social.Page, error) {
	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return nil, err
	}
	if agent.FacebookUserToken == "" {
		return nil, ErrFacebookNotConnected
	}

	pages, err := s.publisher.Pages(ctx, agent.FacebookUserToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list facebook pages: %w", err)
	}
	return withoutTokens(pages), nil
}

func (s *FacebookService) SelectPage(ctx context.Context, agentID, pageID string) (*model.Agent, error) {
	if pageID == "" {
		return nil, invalidf("page_id is required")
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return nil, err
	}
	if agent.FacebookUserToken == "" {
		return nil, ErrFacebookNotConnected
	}

	pages, err := s.publisher.Pages(ctx, agent.FacebookUserToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list facebook pages: %w", err)
	}

	for _, page := range pages {
		if page.ID != pageID {
			continue
		}
		agent.FacebookPageID = page.ID
		agent.FacebookPageName = page.Name
		agent.FacebookPageToken = page.AccessToken

		err = s.agentRepo.UpdateFacebook(agent)
		if err != nil {
			return nil, fmt.Errorf("failed to save facebook page: %w", err)
		}

		slog.Info("facebook page selected", "agent_id", agentID, "page_id", page.ID)
		return agent, nil
	}

	return nil, invalidf("page %s is not managed by the connected account", pageID)
}

func (s *FacebookService) Disconnect(agentID string) error {
	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return err
	}

	agent.FacebookUserToken = ""
	agent.FacebookPageID = ""
	agent.FacebookPageName = ""
	agent.FacebookPageToken = ""

	err = s.agentRepo.UpdateFacebook(agent)
	if err != nil {
		return fmt.Errorf("failed to clear facebook connection: %w", err)
	}

	slog.Info("facebook disconnected", "agent_id", agentID)
	return nil
}

// PublishProperty posts the listing to the connected page and returns the post id.
func (s *FacebookService) PublishProperty(ctx context.Context, agentID, propertyID, message string) (string, error) {
	sub, err := s.subscriptionService.Subscription(agentID)
	if err != nil {
		return "", err
	}
	if !sub.HasFeature(model.FeatureFacebook) {
		return "", ErrFeatureNotAvailable
	}

	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return "", err
	}
	if !agent.FacebookConnected() {
		return "", ErrFacebookPageNotConnected
	}

	property, err := s.propertyService.Owned(agentID, propertyID)
	if err != nil {
		return "", err
	}

	link := s.appURL + "/p/" + property.Slug
	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultPostMessage(property, link)
	}

	postID, err := s.publisher.Publish(ctx, agent.FacebookPageID, agent.FacebookPageToken, message, link)
	if err != nil {
		return "", fmt.Errorf("failed to publish to facebook: %w", err)
	}

	slog.Info("property published to facebook", "agent_id", agentID, "property_id", property.ID, "post_id", postID)
	return postID, nil
}

func defaultPostMessage(p *model.Property, link string) string {
	var b strings.Builder
	b.WriteString(p.Title)
	fmt.Fprintf(&b, " - %s %s", formatNumber(p.Price), p.Currency)
	if p.City != "" {
		fmt.Fprintf(&b, " - %s", p.City)
	}
	fmt.Fprintf(&b, "\n\n%s", link)
	return b.String()
}
