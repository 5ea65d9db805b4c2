package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := NewParser()

	html, err := p.Parse([]byte("## Garden\n\nA **sunny** plot.<script>alert(1)</script>"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<h2 id="garden">Garden</h2>`)
	assert.Contains(t, string(html), "<strong>sunny</strong>")
	assert.NotContains(t, string(html), "<script>")
}

func TestParseWithFrontmatter(t *testing.T) {
	p := NewParser()

	html, meta, err := p.ParseWithFrontmatter([]byte("---\ntitle: Terms of Service\nlastUpdated: 2026-01-15\n---\n# Terms\n"))
	require.NoError(t, err)
	assert.Equal(t, "Terms of Service", meta["title"])
	assert.Contains(t, string(html), "Terms</h1>")
}

func TestPlainText(t *testing.T) {
	p := NewParser()

	got := p.PlainText([]byte("# Villa\n\nBright *open* plan with `pool`.\n\n- three bedrooms\n- [garden](https://x.test)"))
	assert.Equal(t, "Villa Bright open plan with pool. three bedrooms garden", got)
}

func TestExcerpt(t *testing.T) {
	p := NewParser()

	long := strings.Repeat("á", 250)
	got := p.Excerpt([]byte(long), 200)
	assert.Equal(t, 200, len([]rune(got)))

	assert.Equal(t, "short", p.Excerpt([]byte("short"), 200))
}
