package service

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
)

// publicRoutes are the static public pages listed in the sitemap.
var publicRoutes = []struct {
	Path       string
	Priority   string
	ChangeFreq string
}{
	{"/", "1.0", "weekly"},
	{"/legal/terms", "0.3", "yearly"},
	{"/legal/privacy", "0.3", "yearly"},
}

type SitemapService struct {
	propertyRepo repository.PropertyRepository
	agentRepo    repository.AgentRepository
	baseURL      string
}

func NewSitemapService(propertyRepo repository.PropertyRepository, agentRepo repository.AgentRepository, baseURL string) *SitemapService {
	return &SitemapService{
		propertyRepo: propertyRepo,
		agentRepo:    agentRepo,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
	}
}

// GenerateSitemap lists static pages, every active listing and every agent page.
func (s *SitemapService) GenerateSitemap() ([]byte, error) {
	sitemap := model.Sitemap{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  s.staticURLs(),
	}

	properties, err := s.propertyRepo.AllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list active properties: %w", err)
	}
	for _, p := range properties {
		sitemap.URLs = append(sitemap.URLs, model.SitemapURL{
			Loc:        s.baseURL + "/p/" + p.Slug,
			LastMod:    p.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	usernames, err := s.agentRepo.Usernames()
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	for _, username := range usernames {
		sitemap.URLs = append(sitemap.URLs, model.SitemapURL{
			Loc:        s.baseURL + "/agents/" + username,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	output, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return []byte(xml.Header + string(output)), nil
}

func (s *SitemapService) staticURLs() []model.SitemapURL {
	today := time.Now().Format("2006-01-02")
	urls := make([]model.SitemapURL, 0, len(publicRoutes))

	for _, route := range publicRoutes {
		urls = append(urls, model.SitemapURL{
			Loc:        s.baseURL + route.Path,
			LastMod:    today,
			ChangeFreq: route.ChangeFreq,
			Priority:   route.Priority,
		})
	}

	return urls
}

// RobotsTxt allows public pages and points crawlers at the sitemap.
func (s *SitemapService) RobotsTxt() string {
	return fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /app/\nDisallow: /auth/\nDisallow: /upload/\n\nSitemap: %s/sitemap.xml\n", s.baseURL)
}
