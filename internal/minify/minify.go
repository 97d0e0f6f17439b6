// Package minify wraps tdewolff/minify for the html, css and svg outputs.
package minify

import (
	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

const (
	mediaHTML = "text/html"
	mediaCSS  = "text/css"
	mediaSVG  = "image/svg+xml"
)

// Minifier holds the configured minifiers. It is safe for concurrent use.
type Minifier struct {
	page  *tdminify.M
	style *tdminify.M
}

// New returns a Minifier. HTML minification only collapses whitespace:
// comments, quotes, end tags, document tags and default attribute values
// are kept, and inline styles and scripts are left alone.
func New() *Minifier {
	page := tdminify.New()
	page.Add(mediaHTML, &html.Minifier{
		KeepComments:        true,
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})

	style := tdminify.New()
	style.AddFunc(mediaCSS, css.Minify)
	style.Add(mediaSVG, &svg.Minifier{})

	return &Minifier{page: page, style: style}
}

func (m *Minifier) HTML(b []byte) ([]byte, error) { return run(m.page, mediaHTML, b) }
func (m *Minifier) CSS(b []byte) ([]byte, error)  { return run(m.style, mediaCSS, b) }
func (m *Minifier) SVG(b []byte) ([]byte, error)  { return run(m.style, mediaSVG, b) }

func run(m *tdminify.M, mediatype string, b []byte) ([]byte, error) {
	out, err := m.Bytes(mediatype, b)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCompile, "minification failed").
			WithContext("media_type", mediatype).
			Build()
	}
	return out, nil
}
