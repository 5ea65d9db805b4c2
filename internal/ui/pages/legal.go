package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/estatedesk/internal/service"
)

func Legal(page *service.LegalPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main><article class="card"><h1>`)
		hw.text(page.Title)
		hw.raw(`</h1>`)
		if page.LastUpdated != "" {
			hw.raw(`<p><em>Last updated `)
			hw.text(page.LastUpdated)
			hw.raw(`</em></p>`)
		}
		hw.raw(string(page.Content))
		hw.raw(`</article></main>`)
		return hw.err
	})
}
