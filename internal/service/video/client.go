// Package video uploads listing videos to a Cloudflare Stream compatible API.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("video platform is not configured")

// Processing states reported by the platform.
const (
	StateQueued     = "queued"
	StateInProgress = "inprogress"
	StateReady      = "ready"
	StateError      = "error"
)

type Config struct {
	BaseURL   string
	AccountID string
	APIToken  string
	Timeout   time.Duration
}

type Video struct {
	UID          string
	State        string
	PlaybackURL  string
	ThumbnailURL string
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.AccountID != "" && c.cfg.APIToken != ""
}

type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

type streamVideo struct {
	UID       string `json:"uid"`
	Thumbnail string `json:"thumbnail"`
	Status    struct {
		State string `json:"state"`
	} `json:"status"`
	Playback struct {
		HLS string `json:"hls"`
	} `json:"playback"`
}

func (v streamVideo) toVideo() *Video {
	state := v.Status.State
	switch state {
	case StateReady, StateInProgress, StateError:
	default:
		// pendingupload, downloading and unknown states
		state = StateQueued
	}
	return &Video{
		UID:          v.UID,
		State:        state,
		PlaybackURL:  v.Playback.HLS,
		ThumbnailURL: v.Thumbnail,
	}
}

func (c *Client) streamURL(parts ...string) string {
	u := fmt.Sprintf("%s/accounts/%s/stream", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountID)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// Upload streams the file to the platform as multipart form data.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*Video, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.streamURL(), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var v streamVideo
	err = c.do(req, &v)
	if err != nil {
		return nil, err
	}
	return v.toVideo(), nil
}

func (c *Client) Status(ctx context.Context, uid string) (*Video, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(uid), nil)
	if err != nil {
		return nil, err
	}

	var v streamVideo
	err = c.do(req, &v)
	if err != nil {
		return nil, err
	}
	return v.toVideo(), nil
}

func (c *Client) Delete(ctx context.Context, uid string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.streamURL(uid), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("video request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("video api returned %d: %s", resp.StatusCode, truncate(string(body), 512))
	}
	if out == nil || len(body) == 0 {
		return nil
	}

	var env envelope
	err = json.Unmarshal(body, &env)
	if err != nil {
		return fmt.Errorf("failed to decode video api response: %w", err)
	}
	if !env.Success {
		if len(env.Errors) > 0 {
			return fmt.Errorf("video api error %d: %s", env.Errors[0].Code, env.Errors[0].Message)
		}
		return errors.New("video api request was not successful")
	}

	return json.Unmarshal(env.Result, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
