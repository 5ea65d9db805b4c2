package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/markdown"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
	"github.com/templui/estatedesk/internal/ui"
	"github.com/templui/estatedesk/internal/ui/pages"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const ogDescriptionLength = 200

type PublicHandler struct {
	propertyService    *service.PropertyService
	agentService       *service.AgentService
	customFieldService *service.CustomFieldService
	currencyService    *service.CurrencyService
	parser             *markdown.Parser
	appName            string
	appURL             string
}

func NewPublicHandler(
	propertyService *service.PropertyService,
	agentService *service.AgentService,
	customFieldService *service.CustomFieldService,
	currencyService *service.CurrencyService,
	parser *markdown.Parser,
	cfg *config.Config,
) *PublicHandler {
	return &PublicHandler{
		propertyService:    propertyService,
		agentService:       agentService,
		customFieldService: customFieldService,
		currencyService:    currencyService,
		parser:             parser,
		appName:            cfg.AppName,
		appURL:             cfg.AppURL,
	}
}

type publicListingResponse struct {
	Property model.PublicProperty `json:"property"`
	Agent    model.PublicAgent    `json:"agent"`
}

// PropertyJSON serves a listing by slug and counts the view.
func (h *PublicHandler) PropertyJSON(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	property, agent, err := h.propertyService.PublicListing(slug)
	if err != nil {
		writeServiceError(w, "failed to load public listing", err, "slug", slug)
		return
	}

	fields, err := h.customFieldService.List(agent.ID, property.PropertyType, property.ListingType)
	if err != nil {
		writeServiceError(w, "failed to load custom fields", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, publicListingResponse{
		Property: property.Public(fields),
		Agent:    agent.Public(),
	})
}

// ListingPage renders the shareable HTML page of a listing with Open Graph tags.
func (h *PublicHandler) ListingPage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	property, agent, err := h.propertyService.PublicListing(slug)
	if err != nil {
		h.renderError(w, r, "failed to load public listing", err, "slug", slug)
		return
	}

	fields, err := h.customFieldService.List(agent.ID, property.PropertyType, property.ListingType)
	if err != nil {
		h.renderError(w, r, "failed to load custom fields", err, "agent_id", agent.ID)
		return
	}

	description, err := h.parser.Parse([]byte(property.Description))
	if err != nil {
		slog.Warn("failed to render description", "error", err, "property_id", property.ID)
		description = nil
	}

	public := property.Public(fields)
	excerpt := h.parser.Excerpt([]byte(property.Description), ogDescriptionLength)
	pageURL := h.appURL + "/p/" + property.Slug

	data := pages.ListingData{
		Property:        public,
		Agent:           agent.Public(),
		DescriptionHTML: template.HTML(description),
		Excerpt:         excerpt,
		PriceLabel:      h.priceLabel(property.Price, property.Currency),
		URL:             pageURL,
	}
	meta := pages.Meta{
		SiteName:    h.appName,
		Title:       property.Title,
		Description: excerpt,
		Image:       property.CoverImage(),
		URL:         pageURL,
		Type:        "website",
	}

	ui.Render(w, r, http.StatusOK, pages.Layout(meta, pages.Listing(data)))
}

// AgentPage renders an agent's public page.
func (h *PublicHandler) AgentPage(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	agent, properties, err := h.agentService.PublicProfile(username)
	if err != nil {
		h.renderError(w, r, "failed to load agent page", err, "username", username)
		return
	}

	views, err := publicProperties(h.customFieldService, agent.ID, properties)
	if err != nil {
		h.renderError(w, r, "failed to load custom fields", err, "agent_id", agent.ID)
		return
	}

	cards := make([]pages.ListingCard, len(views))
	for i, view := range views {
		cards[i] = pages.ListingCard{Property: view, PriceLabel: h.priceLabel(view.Price, view.Currency)}
	}

	public := agent.Public()
	meta := pages.Meta{
		SiteName:    h.appName,
		Title:       public.Name,
		Description: h.parser.Excerpt([]byte(agent.Bio), ogDescriptionLength),
		Image:       agent.LogoURL,
		URL:         h.appURL + "/agents/" + agent.Username,
		Type:        "profile",
	}

	ui.Render(w, r, http.StatusOK, pages.Layout(meta, pages.AgentProfile(pages.AgentData{Agent: public, Listings: cards})))
}

func (h *PublicHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencyService.List()
	if err != nil {
		writeServiceError(w, "failed to list currencies", err)
		return
	}
	writeJSON(w, http.StatusOK, currencies)
}

// priceLabel formats a price with the currency symbol and English digit grouping.
func (h *PublicHandler) priceLabel(price float64, code string) string {
	symbol := code
	currencies, err := h.currencyService.List()
	if err == nil {
		for _, c := range currencies {
			if c.Code == code {
				symbol = c.Symbol
				break
			}
		}
	}

	p := message.NewPrinter(language.English)
	if price == float64(int64(price)) {
		return p.Sprintf("%s %d", symbol, int64(price))
	}
	return p.Sprintf("%s %.2f", symbol, price)
}

func (h *PublicHandler) renderError(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	meta := pages.Meta{SiteName: h.appName, Title: "Not found", NoIndex: true}
	if errors.Is(err, repository.ErrPropertyNotFound) || errors.Is(err, repository.ErrAgentNotFound) {
		ui.Render(w, r, http.StatusNotFound, pages.Layout(meta, pages.Message(meta.Title, "This page does not exist or is no longer available.")))
		return
	}

	slog.Error(msg, append([]any{"error", err}, attrs...)...)
	meta.Title = "Something went wrong"
	ui.Render(w, r, http.StatusInternalServerError, pages.Layout(meta, pages.Message(meta.Title, "Please try again in a moment.")))
}
