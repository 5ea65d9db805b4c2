// Package social connects agents to their Facebook pages and publishes listings.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fb "github.com/huandu/facebook/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

var ErrNotConfigured = errors.New("facebook app is not configured")

// FacebookScopes are required to list pages and post on their feed.
var FacebookScopes = []string{"pages_manage_posts", "pages_read_engagement", "pages_show_list"}

type FacebookConfig struct {
	AppID        string
	AppSecret    string
	RedirectURL  string
	GraphVersion string
	// GraphURL sends Graph requests to another host, such as a local stub.
	GraphURL string
	// Endpoint overrides the OAuth endpoint; zero means facebook.Endpoint.
	Endpoint oauth2.Endpoint
}

type Page struct {
	ID          string `json:"id" facebook:"id"`
	Name        string `json:"name" facebook:"name"`
	AccessToken string `json:"access_token,omitempty" facebook:"access_token"`
}

type Facebook struct {
	oauth   *oauth2.Config
	app     *fb.App
	version string
	client  *http.Client
}

func NewFacebook(cfg FacebookConfig) *Facebook {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = facebook.Endpoint
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if target, err := url.Parse(cfg.GraphURL); err == nil && target.Host != "" {
		client.Transport = &graphHost{target: target, next: http.DefaultTransport}
	}

	return &Facebook{
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       FacebookScopes,
			Endpoint:     endpoint,
		},
		app:     fb.New(cfg.AppID, cfg.AppSecret),
		version: cfg.GraphVersion,
		client:  client,
	}
}

func (f *Facebook) Enabled() bool {
	return f.oauth.ClientID != "" && f.oauth.ClientSecret != ""
}

func (f *Facebook) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for a user access token.
func (f *Facebook) Exchange(ctx context.Context, code string) (string, error) {
	if !f.Enabled() {
		return "", ErrNotConfigured
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("facebook token exchange failed: %w", err)
	}
	return token.AccessToken, nil
}

func (f *Facebook) session(ctx context.Context, accessToken string) *fb.Session {
	session := f.app.Session(accessToken)
	session.HttpClient = f.client
	session.Version = f.version
	return session.WithContext(ctx)
}

// Pages lists the pages the user manages, with their page tokens.
func (f *Facebook) Pages(ctx context.Context, userToken string) ([]Page, error) {
	res, err := f.session(ctx, userToken).Get("/me/accounts", fb.Params{
		"fields": "id,name,access_token",
	})
	if err != nil {
		return nil, graphError(err)
	}

	pages := []Page{}
	err = res.DecodeField("data", &pages)
	if err != nil {
		return nil, fmt.Errorf("failed to decode facebook pages: %w", err)
	}
	return pages, nil
}

// Publish posts a message with a link on the page feed and returns the post id.
func (f *Facebook) Publish(ctx context.Context, pageID, pageToken, message, link string) (string, error) {
	params := fb.Params{"message": message}
	if link != "" {
		params["link"] = link
	}

	res, err := f.session(ctx, pageToken).Post("/"+url.PathEscape(pageID)+"/feed", params)
	if err != nil {
		return "", graphError(err)
	}

	var id string
	err = res.DecodeField("id", &id)
	if err != nil {
		return "", fmt.Errorf("failed to decode facebook post id: %w", err)
	}
	return id, nil
}

// GraphError is an error payload returned by the Graph API.
type GraphError struct {
	Message string
	Type    string
	Code    int
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("facebook graph error %d (%s): %s", e.Code, e.Type, e.Message)
}

func graphError(err error) error {
	var fbErr *fb.Error
	if errors.As(err, &fbErr) {
		return &GraphError{Message: fbErr.Message, Type: fbErr.Type, Code: fbErr.Code}
	}
	return fmt.Errorf("facebook request failed: %w", err)
}

// graphHost rewrites Graph API requests to target's scheme and host.
type graphHost struct {
	target *url.URL
	next   http.RoundTripper
}

func (g *graphHost) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = g.target.Scheme
	req.URL.Host = g.target.Host
	req.Host = g.target.Host
	return g.next.RoundTrip(req)
}
