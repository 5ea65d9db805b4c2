package service

import (
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/templui/estatedesk/internal/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrLegalPageNotFound = errors.New("legal page not found")

var legalSlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type LegalPage struct {
	Title       string
	Slug        string
	Content     template.HTML
	LastUpdated string
}

// LegalService serves markdown pages from <content>/legal. Files are read on
// every request so edits show up without a restart.
type LegalService struct {
	contentDir string
	parser     *markdown.Parser
}

func NewLegalService(contentDir string, parser *markdown.Parser) *LegalService {
	return &LegalService{
		contentDir: filepath.Join(contentDir, "legal"),
		parser:     parser,
	}
}

func (s *LegalService) Page(slug string) (*LegalPage, error) {
	if !legalSlugPattern.MatchString(slug) {
		return nil, ErrLegalPageNotFound
	}

	filePath := filepath.Join(s.contentDir, slug+".md")
	content, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrLegalPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read legal page: %w", err)
	}

	html, meta, err := s.parser.ParseWithFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	title, _ := meta["title"].(string)
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}

	// Frontmatter date first, then file modification time
	lastUpdated := parseDate(meta["lastUpdated"])
	if lastUpdated == "" {
		info, err := os.Stat(filePath)
		if err == nil {
			lastUpdated = info.ModTime().Format("January 2, 2006")
		}
	}

	return &LegalPage{
		Title:       title,
		Slug:        slug,
		Content:     template.HTML(html),
		LastUpdated: lastUpdated,
	}, nil
}

func parseDate(value any) string {
	var dateStr string

	switch v := value.(type) {
	case string:
		dateStr = v
	case time.Time:
		return v.Format("January 2, 2006")
	default:
		return ""
	}

	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"02.01.2006",
		"Jan 2, 2006",
		"January 2, 2006",
		time.RFC3339,
	}

	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.Format("January 2, 2006")
		}
	}

	return dateStr
}
