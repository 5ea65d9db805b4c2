package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/estatedesk/internal/model"
)

// ListingCard is one entry of an agent's listing grid.
type ListingCard struct {
	Property   model.PublicProperty
	PriceLabel string
}

type AgentData struct {
	Agent    model.PublicAgent
	Listings []ListingCard
}

// AgentProfile renders an agent's public page with their active listings.
func AgentProfile(data AgentData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		agentHeader(hw, data.Agent)
		hw.raw(`<main>`)
		agentCard(hw, data.Agent)

		if len(data.Listings) == 0 {
			hw.raw(`<p>No active listings right now.</p>`)
		}

		hw.raw(`<div class="gallery">`)
		for _, card := range data.Listings {
			p := card.Property
			hw.raw(`<a class="card"`)
			hw.url("href", "/p/"+p.Slug)
			hw.raw(`>`)
			if len(p.Photos) > 0 {
				hw.raw(`<img loading="lazy"`)
				hw.url("src", p.Photos[0])
				hw.attr("alt", p.Title)
				hw.raw(`>`)
			}
			hw.raw(`<h3>`)
			hw.text(p.Title)
			hw.raw(`</h3><p class="price">`)
			hw.text(card.PriceLabel)
			hw.raw(`</p><p>`)
			hw.text(locationLine(p))
			hw.raw(`</p></a>`)
		}
		hw.raw(`</div></main>`)
		return hw.err
	})
}
