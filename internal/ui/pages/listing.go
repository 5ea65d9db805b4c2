package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/templui/estatedesk/internal/model"
)

type ListingData struct {
	Property        model.PublicProperty
	Agent           model.PublicAgent
	DescriptionHTML template.HTML
	Excerpt         string
	PriceLabel      string
	URL             string
}

// Listing renders the public page of a property.
func Listing(data ListingData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		p := data.Property

		agentHeader(hw, data.Agent)

		hw.raw(`<main><article class="card"><h1>`)
		hw.text(p.Title)
		hw.raw(`</h1>`)
		if p.Status != model.PropertyStatusActive {
			hw.raw(`<span class="status">`)
			hw.text(p.Status)
			hw.raw(`</span>`)
		}
		hw.raw(`<p class="price">`)
		hw.text(data.PriceLabel)
		if p.ListingType == model.ListingTypeRent {
			hw.raw(` / month`)
		}
		hw.raw(`</p>`)

		if location := locationLine(p); location != "" {
			hw.raw(`<p>`)
			hw.text(location)
			hw.raw(`</p>`)
		}

		hw.raw(`<ul class="facts">`)
		fact(hw, "Type", p.PropertyType)
		if p.Bedrooms > 0 {
			fact(hw, "Bedrooms", strconv.Itoa(p.Bedrooms))
		}
		if p.Bathrooms > 0 {
			fact(hw, "Bathrooms", strconv.Itoa(p.Bathrooms))
		}
		if p.AreaM2 > 0 {
			fact(hw, "Area", strconv.FormatFloat(p.AreaM2, 'f', -1, 64)+" m²")
		}
		for _, feature := range p.Features {
			fact(hw, feature.Name, featureValue(feature.Value))
		}
		hw.raw(`</ul>`)

		images := append(append([]string{}, p.Photos...), p.MarketingImages...)
		if len(images) > 0 {
			hw.raw(`<div class="gallery">`)
			for i, src := range images {
				hw.raw(`<img loading="lazy"`)
				hw.url("src", src)
				hw.attr("alt", fmt.Sprintf("%s photo %d", p.Title, i+1))
				hw.raw(`>`)
			}
			hw.raw(`</div>`)
		}

		if p.VideoPlaybackURL != "" {
			hw.raw(`<video controls preload="none"`)
			hw.url("src", p.VideoPlaybackURL)
			if p.VideoThumbnailURL != "" {
				hw.url("poster", p.VideoThumbnailURL)
			}
			hw.raw(` style="width:100%;margin-top:16px"></video>`)
		}

		if data.DescriptionHTML != "" {
			hw.raw(`<section>`)
			hw.raw(string(data.DescriptionHTML))
			hw.raw(`</section>`)
		}
		hw.raw(`</article>`)

		agentCard(hw, data.Agent)
		hw.raw(`</main>`)

		structuredData(ctx, hw, data)
		return hw.err
	})
}

func agentHeader(hw *htmlWriter, agent model.PublicAgent) {
	hw.raw(`<header class="site"><a class="brand"`)
	hw.url("href", "/agents/"+agent.Username)
	if agent.BrandColor != "" {
		hw.attr("style", "color:"+agent.BrandColor)
	}
	hw.raw(`>`)
	if agent.LogoURL != "" {
		hw.raw(`<img`)
		hw.url("src", agent.LogoURL)
		hw.attr("alt", agent.Name)
		hw.raw(`>`)
	}
	hw.raw(`<strong>`)
	hw.text(agent.Name)
	hw.raw(`</strong></a></header>`)
}

func agentCard(hw *htmlWriter, agent model.PublicAgent) {
	hw.raw(`<aside class="card"><h2>Contact `)
	hw.text(agent.Name)
	hw.raw(`</h2>`)
	if agent.Phone != "" {
		hw.raw(`<p><a`)
		hw.url("href", "tel:"+agent.Phone)
		hw.raw(`>`)
		hw.text(agent.Phone)
		hw.raw(`</a></p>`)
	}
	if agent.Bio != "" {
		hw.raw(`<p>`)
		hw.text(agent.Bio)
		hw.raw(`</p>`)
	}
	hw.raw(`<p><a`)
	hw.url("href", "/agents/"+agent.Username)
	hw.raw(`>All listings</a></p></aside>`)
}

func fact(hw *htmlWriter, label, value string) {
	if value == "" {
		return
	}
	hw.raw(`<li><strong>`)
	hw.text(label)
	hw.raw(`:</strong> `)
	hw.text(value)
	hw.raw(`</li>`)
}

func featureValue(v any) string {
	switch value := v.(type) {
	case bool:
		if value {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

func locationLine(p model.PublicProperty) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Address, p.City, p.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// structuredData emits schema.org JSON-LD. The script carries the request nonce
// so it passes the Content-Security-Policy.
func structuredData(ctx context.Context, hw *htmlWriter, data ListingData) {
	p := data.Property
	doc := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "RealEstateListing",
		"name":        p.Title,
		"url":         data.URL,
		"datePosted":  p.CreatedAt.Format("2006-01-02"),
		"image":       append(append([]string{}, p.Photos...), p.MarketingImages...),
		"offers":      map[string]any{"@type": "Offer", "price": p.Price, "priceCurrency": p.Currency},
		"description": data.Excerpt,
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return
	}

	hw.raw(`<script type="application/ld+json"`)
	if nonce := templ.GetNonce(ctx); nonce != "" {
		hw.attr("nonce", nonce)
	}
	hw.raw(`>`)
	hw.raw(string(encoded))
	hw.raw(`</script>`)
}
