package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service/social"
	"github.com/templui/estatedesk/internal/service/video"
	"github.com/templui/estatedesk/internal/storage"
)

// Minimal JPEG header, enough for content sniffing.
var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xD9}

type fakeVideos struct {
	uploads []string
	deleted []string
	status  *video.Video
	err     error
}

func (f *fakeVideos) Upload(ctx context.Context, filename string, file io.Reader) (*video.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.uploads = append(f.uploads, filename)
	return &video.Video{UID: "vid-1", State: "queued"}, nil
}

func (f *fakeVideos) Status(ctx context.Context, uid string) (*video.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.status != nil {
		return f.status, nil
	}
	return &video.Video{UID: uid, State: "queued"}, nil
}

func (f *fakeVideos) Delete(ctx context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return f.err
}

type fakeAI struct {
	text       string
	image      []byte
	transcript string
	err        error
	systems    []string
	prompts    []string
	// onImage runs while an image is being generated.
	onImage    func()
}

func (f *fakeAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt, size string) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	if f.onImage != nil {
		f.onImage()
	}
	return f.image, f.err
}

func (f *fakeAI) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	return f.transcript, f.err
}

type fakePublisher struct {
	pages []social.Page
	posts []string
	links []string
	err   error
}

func (f *fakePublisher) AuthCodeURL(state string) string {
	return "https://facebook.test/dialog?state=" + state
}

func (f *fakePublisher) Exchange(ctx context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "user-token-" + code, nil
}

func (f *fakePublisher) Pages(ctx context.Context, userToken string) ([]social.Page, error) {
	return f.pages, f.err
}

func (f *fakePublisher) Publish(ctx context.Context, pageID, pageToken, message, link string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, message)
	f.links = append(f.links, link)
	return pageID + "_post1", nil
}

type testEnv struct {
	conn      *sqlx.DB
	storage   *storage.MemoryStorage
	videos    *fakeVideos
	ai        *fakeAI
	publisher *fakePublisher

	agentRepo       repository.AgentRepository
	propertyRepo    repository.PropertyRepository
	uploadTokenRepo repository.UploadTokenRepository

	subscriptions *SubscriptionService
	credits       *CreditService
	agents        *AgentService
	auth          *AuthService
	properties    *PropertyService
	customFields  *CustomFieldService
	uploadTokens  *UploadTokenService
	currencies    *CurrencyService
	aiService     *AIService
	facebook      *FacebookService
	export        *ExportService
	analytics     *AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := db.OpenTest(t)
	agentRepo := repository.NewAgentRepository(conn)
	propertyRepo := repository.NewPropertyRepository(conn)
	customFieldRepo := repository.NewCustomFieldRepository(conn)
	currencyRepo := repository.NewCurrencyRepository(conn)
	uploadTokenRepo := repository.NewUploadTokenRepository(conn)
	subscriptionRepo := repository.NewSubscriptionRepository(conn)
	tokenRepo := repository.NewTokenRepository(conn)
	fileRepo := repository.NewFileRepository(conn)

	e := &testEnv{
		conn:            conn,
		storage:         storage.NewMemoryStorage(),
		videos:          &fakeVideos{},
		ai:              &fakeAI{text: "A bright family home.", image: []byte("\x89PNG\r\n\x1a\n"), transcript: "three bedrooms near the park"},
		publisher:       &fakePublisher{},
		agentRepo:       agentRepo,
		propertyRepo:    propertyRepo,
		uploadTokenRepo: uploadTokenRepo,
	}

	email := NewEmailService("", "noreply@estatedesk.test", "https://app.test", "EstateDesk", true)
	files := NewFileService(fileRepo, e.storage)
	e.subscriptions = NewSubscriptionService(subscriptionRepo, agentRepo)
	e.credits = NewCreditService(agentRepo, e.subscriptions)
	e.agents = NewAgentService(agentRepo, propertyRepo, files, email, e.subscriptions, e.videos)
	e.auth = NewAuthService(agentRepo, tokenRepo, e.agents, email, "test-secret", false, time.Hour, 15*time.Minute)
	e.properties = NewPropertyService(propertyRepo, customFieldRepo, currencyRepo, uploadTokenRepo, agentRepo, e.subscriptions, files, email, e.credits, e.videos, e.ai)
	e.customFields = NewCustomFieldService(customFieldRepo)
	e.uploadTokens = NewUploadTokenService(uploadTokenRepo, propertyRepo, agentRepo, customFieldRepo, currencyRepo, "https://app.test", 72*time.Hour, 30*24*time.Hour)
	e.currencies = NewCurrencyService(currencyRepo)
	e.aiService = NewAIService(e.ai, e.properties, propertyRepo, customFieldRepo, agentRepo, e.credits, files)
	e.facebook = NewFacebookService(e.publisher, agentRepo, e.properties, e.subscriptions, "https://app.test/")
	e.export = NewExportService(propertyRepo, customFieldRepo, e.subscriptions, "https://app.test")
	e.analytics = NewAnalyticsService(propertyRepo)

	require.NoError(t, e.currencies.EnsureSeeded())
	return e
}

func (e *testEnv) newAgent(t *testing.T, email string) *model.Agent {
	t.Helper()

	agent, err := e.agents.Create(email, "", true)
	require.NoError(t, err)
	return agent
}

func (e *testEnv) setPlan(t *testing.T, agentID, plan string) {
	t.Helper()

	sub, err := e.subscriptions.Subscription(agentID)
	require.NoError(t, err)
	sub.PlanID = plan
	sub.Status = model.SubscriptionStatusActive
	require.NoError(t, e.subscriptions.UpdateSubscription(sub))
}

func (e *testEnv) createProperty(t *testing.T, agentID, title string) *model.Property {
	t.Helper()

	property, err := e.properties.Create(agentID, PropertyInput{
		Title:        title,
		Price:        250000,
		PropertyType: model.PropertyTypeHouse,
		ListingType:  model.ListingTypeSale,
		Bedrooms:     3,
		City:         "Lisbon",
	})
	require.NoError(t, err)
	return property
}

// fileHeader builds an uploaded file the way net/http parses it.
func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field][0]
}
