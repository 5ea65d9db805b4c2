package routes_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/estatedesk/internal/app"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/routes"
	"github.com/templui/estatedesk/internal/storage"
)

type fakePayments struct {
	checkouts []string
	webhooks  int
}

func (f *fakePayments) CreateCheckoutURL(agentID, planID, interval, customerEmail, customerName string) (string, error) {
	f.checkouts = append(f.checkouts, planID+"/"+interval)
	return "https://pay.test/checkout/" + planID, nil
}

func (f *fakePayments) CustomerPortalURL(agentID string) (string, error) {
	return "https://pay.test/portal", nil
}

func (f *fakePayments) HandleWebhook(payload []byte, headers http.Header) error {
	if headers.Get("Webhook-Signature") == "" {
		return errors.New("missing signature")
	}
	f.webhooks++
	return nil
}

func (f *fakePayments) Name() string { return "fake" }

type testServer struct {
	t        *testing.T
	app      *app.App
	handler  http.Handler
	payments *fakePayments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:                  "EstateDesk",
		AppEnv:                   "development",
		AppURL:                   "https://app.test",
		ContentPath:              "../../content",
		JWTSecret:                "test-secret",
		JWTExpiry:                time.Hour,
		TokenMagicLinkExpiry:     15 * time.Minute,
		UploadTokenDefaultExpiry: 72 * time.Hour,
		UploadTokenMaxExpiry:     30 * 24 * time.Hour,
		AuthRateLimit:            100,
		AuthRateLimitWindow:      time.Minute,
		EmailFrom:                "noreply@estatedesk.test",
	}

	a := app.Build(cfg, db.OpenTest(t), storage.NewMemoryStorage())
	require.NoError(t, a.CurrencyService.EnsureSeeded())
	payments := &fakePayments{}
	a.PaymentService = payments

	return &testServer{t: t, app: a, handler: routes.SetupRoutes(a), payments: payments}
}

func (s *testServer) newAgent(email string) (*model.Agent, string) {
	s.t.Helper()

	agent, err := s.app.AgentService.Create(email, "", true)
	require.NoError(s.t, err)
	token, err := s.app.AuthService.GenerateJWT(agent)
	require.NoError(s.t, err)
	return agent, token
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var houseForSale = map[string]any{
	"title":         "Sea View House",
	"price":         450000,
	"property_type": "house",
	"listing_type":  "sale",
	"city":          "Porto",
	"description":   "Bright **corner** house with a garden.",
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesNeedAgent(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/properties"},
		{http.MethodGet, "/api/agent"},
		{http.MethodGet, "/api/analytics"},
		{http.MethodPost, "/api/properties"},
		{http.MethodGet, "/api/custom-fields"},
	} {
		rec := s.do(route.method, route.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", route.path)
	}

	rec := s.do(http.MethodGet, "/api/properties", nil, bearer("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPropertyLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodPost, "/api/properties", houseForSale, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Property](t, rec)
	assert.Equal(t, "sea-view-house", created.Slug)

	rec = s.do(http.MethodGet, "/api/properties?per_page=5", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Data []model.Property `json:"data"`
		Meta struct {
			Page    int `json:"page"`
			PerPage int `json:"per_page"`
			Total   int `json:"total"`
		} `json:"meta"`
	}](t, rec)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, 5, list.Meta.PerPage)
	assert.Equal(t, 1, list.Meta.Total)

	rec = s.do(http.MethodPatch, "/api/properties/"+created.ID+"/status", map[string]string{"status": "rented"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/api/properties/"+created.ID+"/status", map[string]string{"status": "sold"}, bearer(token))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, otherToken := s.newAgent("bea@example.com")
	rec = s.do(http.MethodGet, "/api/properties/"+created.ID, nil, bearer(otherToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/properties/"+created.ID, nil, bearer(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPublicListingPage(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodPost, "/api/properties", houseForSale, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/p/sea-view-house", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<meta property="og:title" content="Sea View House">`)
	assert.Contains(t, body, `<meta property="og:url" content="https://app.test/p/sea-view-house">`)
	assert.Contains(t, body, "<strong>corner</strong>")
	assert.Contains(t, body, "$ 450,000")
	assert.Contains(t, body, `"@type":"RealEstateListing"`)

	rec = s.do(http.MethodGet, "/api/public/properties/sea-view-house", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "Sea View House", public["property"]["title"])
	assert.NotContains(t, public["agent"], "email")

	rec = s.do(http.MethodGet, "/p/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestNotFoundFormats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
}

func TestUploadTokenCreatesProperty(t *testing.T) {
	s := newTestServer(t)
	agent, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodPost, "/api/upload-tokens", map[string]any{"label": "Seller"}, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploadToken := decode[struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}](t, rec)
	require.NotEmpty(t, uploadToken.Token)

	rec = s.do(http.MethodGet, "/api/upload-tokens/validate/"+uploadToken.Token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/properties", houseForSale, map[string]string{"X-Upload-Token": "unknown"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/properties?upload_token="+uploadToken.Token, houseForSale, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Property](t, rec)
	assert.Equal(t, agent.ID, created.AgentID)
	assert.Equal(t, model.CreatedViaUploadToken, created.CreatedVia)

	rec = s.do(http.MethodPost, "/api/properties", houseForSale, map[string]string{"X-Upload-Token": uploadToken.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/upload-tokens/validate/"+uploadToken.Token, nil, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), `"used_up"`)

	rec = s.do(http.MethodGet, "/api/upload-tokens/validate/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadTokenPhotosAreScoped(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodPost, "/api/properties", houseForSale, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code)
	agentListing := decode[model.Property](t, rec)

	rec = s.do(http.MethodPost, "/api/upload-tokens", map[string]any{}, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code)
	uploadToken := decode[struct {
		Token string `json:"token"`
	}](t, rec)

	rec = s.do(http.MethodPost, "/api/properties/"+agentListing.ID+"/photos", nil, map[string]string{"X-Upload-Token": uploadToken.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/properties/"+agentListing.ID+"/photos", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieSessionsNeedCSRFToken(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	post := func(headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/custom-fields", strings.NewReader(`{"name":"Pool","type":"boolean","property_type":"house","listing_type":"sale"}`))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	session := &http.Cookie{Name: "auth_token", Value: token}
	rec := post(nil, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	csrf := strings.Repeat("A", 43)
	rec = post(map[string]string{"X-CSRF-Token": csrf}, session, &http.Cookie{Name: "csrf_token", Value: csrf})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestFeatureGates(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodGet, "/api/properties/export.csv", nil, bearer(token))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/ai/description", map[string]any{"property_id": "missing"}, bearer(token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBilling(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newAgent("ana@example.com")

	rec := s.do(http.MethodPost, "/api/billing/checkout", map[string]string{"plan": "free"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/billing/checkout", map[string]string{"plan": "pro", "interval": "weekly"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/billing/checkout", map[string]string{"plan": "agency"}, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://pay.test/checkout/agency"}`, rec.Body.String())
	assert.Equal(t, []string{"agency/monthly"}, s.payments.checkouts)

	rec = s.do(http.MethodPost, "/webhooks/payment", map[string]string{"type": "ping"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/webhooks/payment", map[string]string{"type": "ping"}, map[string]string{"Webhook-Signature": "v1,abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.payments.webhooks)
}

func TestCurrenciesAndLegal(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/currencies", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	currencies := decode[[]model.Currency](t, rec)
	require.NotEmpty(t, currencies)
	assert.Equal(t, "USD", currencies[0].Code)

	rec = s.do(http.MethodGet, "/legal/terms", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/legal/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/robots.txt", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://app.test/sitemap.xml")
}
