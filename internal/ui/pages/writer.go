package pages

import (
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter keeps the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) rawf(format string, args ...any) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}

// text writes s HTML-escaped.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// attr writes name="value" with the value escaped.
func (hw *htmlWriter) attr(name, value string) {
	hw.rawf(` %s="%s"`, name, templ.EscapeString(value))
}

// url writes a sanitized URL attribute.
func (hw *htmlWriter) url(name, value string) {
	hw.attr(name, string(templ.URL(value)))
}
