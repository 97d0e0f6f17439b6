package minify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLCollapsesWhitespaceOnly(t *testing.T) {
	in := "<!doctype html>\n<html>\n  <head><title>x</title></head>\n  <body>\n    <!-- keep -->\n    <p class=\"lead\">a    b</p>\n  </body>\n</html>\n"

	out, err := New().HTML([]byte(in))
	require.NoError(t, err)
	s := string(out)
	assert.Less(t, len(s), len(in))
	assert.NotContains(t, s, "    ")
	assert.Contains(t, s, "<!-- keep -->")
	assert.Contains(t, s, `class="lead"`)
	assert.Contains(t, s, "</p>")
	assert.Contains(t, s, "<html>")
}

func TestCSS(t *testing.T) {
	out, err := New().CSS([]byte("a {\n  color : red ;\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "a{color:red}", string(out))
}

func TestSVG(t *testing.T) {
	in := "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"10\" height=\"10\">\n  <!-- c -->\n  <rect width=\"10\" height=\"10\"/>\n</svg>\n"
	out, err := New().SVG([]byte(in))
	require.NoError(t, err)
	assert.Less(t, len(out), len(in))
	assert.Contains(t, string(out), "<rect")
	assert.NotContains(t, string(out), "<!--")
}
