package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Message renders a short page for errors such as missing listings.
func Message(title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main><div class="card"><h1>`)
		hw.text(title)
		hw.raw(`</h1><p>`)
		hw.text(message)
		hw.raw(`</p><p><a href="/">Back to the homepage</a></p></div></main>`)
		return hw.err
	})
}
