package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Meta holds the document title and the Open Graph tags of a page.
type Meta struct {
	SiteName    string
	Title       string
	Description string
	Image       string
	URL         string
	Type        string
	NoIndex     bool
}

const baseStyles = `body{font-family:system-ui,sans-serif;margin:0;color:#1f2933;background:#f7f7f5}
main{max-width:960px;margin:0 auto;padding:24px}
header.site{background:#fff;border-bottom:1px solid #e4e7eb;padding:12px 24px}
.brand{display:flex;align-items:center;gap:12px}
.brand img{height:40px}
.gallery{display:grid;grid-template-columns:repeat(auto-fill,minmax(220px,1fr));gap:8px}
.gallery img{width:100%;border-radius:6px}
.facts{display:flex;flex-wrap:wrap;gap:16px;padding:0;list-style:none}
.price{font-size:1.5rem;font-weight:600}
.status{display:inline-block;padding:2px 8px;border-radius:4px;background:#e4e7eb;text-transform:uppercase;font-size:.75rem}
.card{background:#fff;border-radius:8px;padding:16px;margin-bottom:16px}
footer{color:#7b8794;font-size:.85rem;text-align:center;padding:24px}`

// Layout wraps body in the HTML document shell.
func Layout(meta Meta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(meta.Title)
		if meta.SiteName != "" && meta.SiteName != meta.Title {
			hw.raw(` | `)
			hw.text(meta.SiteName)
		}
		hw.raw(`</title>`)
		if meta.NoIndex {
			hw.raw(`<meta name="robots" content="noindex">`)
		}
		if meta.Description != "" {
			hw.raw(`<meta name="description"`)
			hw.attr("content", meta.Description)
			hw.raw(`>`)
		}
		ogTags(hw, meta)
		hw.raw(`<style>`)
		hw.raw(baseStyles)
		hw.raw(`</style></head><body>`)
		if hw.err != nil {
			return hw.err
		}

		err := body.Render(ctx, w)
		if err != nil {
			return err
		}

		hw.raw(`<footer>`)
		hw.text(meta.SiteName)
		hw.raw(` · <a href="/legal/terms">Terms</a> · <a href="/legal/privacy">Privacy</a></footer></body></html>`)
		return hw.err
	})
}

func ogTags(hw *htmlWriter, meta Meta) {
	tags := []struct{ property, content string }{
		{"og:site_name", meta.SiteName},
		{"og:type", meta.Type},
		{"og:title", meta.Title},
		{"og:description", meta.Description},
		{"og:image", meta.Image},
		{"og:url", meta.URL},
	}
	for _, tag := range tags {
		if tag.content == "" {
			continue
		}
		hw.rawf(`<meta property="%s"`, tag.property)
		hw.attr("content", tag.content)
		hw.raw(`>`)
	}

	card := "summary"
	if meta.Image != "" {
		card = "summary_large_image"
	}
	hw.rawf(`<meta name="twitter:card" content="%s">`, card)
}
