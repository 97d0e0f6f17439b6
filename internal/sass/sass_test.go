package sass

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativizeSources(t *testing.T) {
	root := filepath.FromSlash("/work/site")
	in := `{"version":3,"sources":["file:///work/site/src/scss/main.scss","file:///elsewhere/lib.scss","data:;charset=utf-8,x"],"mappings":"AAAA"}`

	out := RelativizeSources(in, root)

	var m struct {
		Sources  []string `json:"sources"`
		Mappings string   `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, []string{"src/scss/main.scss", "/elsewhere/lib.scss", "data:;charset=utf-8,x"}, m.Sources)
	assert.Equal(t, "AAAA", m.Mappings)
}

func TestRelativizeSourcesKeepsInvalidMaps(t *testing.T) {
	assert.Equal(t, "not json", RelativizeSources("not json", "/"))
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///work/site/src/scss/main.scss", fileURL("/work/site/src/scss/main.scss"))
}

func TestDartCloseWithoutStart(t *testing.T) {
	require.NoError(t, NewDart("").Close())
}
