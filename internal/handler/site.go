package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/service"
	"github.com/templui/estatedesk/internal/ui"
	"github.com/templui/estatedesk/internal/ui/pages"
)

// SiteHandler serves crawler files, legal pages and the health check.
type SiteHandler struct {
	sitemapService *service.SitemapService
	legalService   *service.LegalService
	db             *sqlx.DB
	appName        string
}

func NewSiteHandler(sitemapService *service.SitemapService, legalService *service.LegalService, conn *sqlx.DB, appName string) *SiteHandler {
	return &SiteHandler{
		sitemapService: sitemapService,
		legalService:   legalService,
		db:             conn,
		appName:        appName,
	}
}

func (h *SiteHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	sitemap, err := h.sitemapService.GenerateSitemap()
	if err != nil {
		slog.Error("failed to generate sitemap", "error", err)
		http.Error(w, "failed to generate sitemap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(sitemap)
}

func (h *SiteHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write([]byte(h.sitemapService.RobotsTxt()))
}

func (h *SiteHandler) Legal(w http.ResponseWriter, r *http.Request) {
	page, err := h.legalService.Page(r.PathValue("page"))
	if err != nil {
		h.NotFound(w, r)
		if !errors.Is(err, service.ErrLegalPageNotFound) {
			slog.Error("failed to load legal page", "error", err, "page", r.PathValue("page"))
		}
		return
	}

	meta := pages.Meta{SiteName: h.appName, Title: page.Title, Type: "article"}
	ui.Render(w, r, http.StatusOK, pages.Layout(meta, pages.Legal(page)))
}

// NotFound answers unknown routes: JSON under /api/, HTML everywhere else.
func (h *SiteHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	meta := pages.Meta{SiteName: h.appName, Title: "Not found", NoIndex: true}
	ui.Render(w, r, http.StatusNotFound, pages.Layout(meta, pages.Message(meta.Title, "This page does not exist.")))
}

func (h *SiteHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	err := db.Ping(r.Context(), h.db)
	if err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
