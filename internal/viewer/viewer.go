// Package viewer renders stored post content into the plain text handed to
// search backends and event consumers.
package viewer

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Viewer converts content in any supported storage format to plain text.
// Markdown is rendered first so link targets and emphasis markers drop out;
// HTML is stripped of every tag.
type Viewer struct {
	markdown goldmark.Markdown
	strip    *bluemonday.Policy
}

// New creates a content viewer.
func New() *Viewer {
	return &Viewer{
		markdown: goldmark.New(),
		strip:    bluemonday.StrictPolicy(),
	}
}

// Text returns the plain-text form of content. Unknown formats are treated
// as plain text already.
func (v *Viewer) Text(content, format string) string {
	switch format {
	case "markdown":
		var buf bytes.Buffer
		if err := v.markdown.Convert([]byte(content), &buf); err != nil {
			// Broken markdown still has searchable words in it.
			return collapse(content)
		}
		return collapse(html.UnescapeString(v.strip.Sanitize(buf.String())))
	case "html":
		return collapse(html.UnescapeString(v.strip.Sanitize(content)))
	default:
		return collapse(content)
	}
}

// collapse squeezes runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
