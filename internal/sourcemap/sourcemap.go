// Package sourcemap finalizes source maps tracked on assets by embedding them
// as base64 data URIs.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"regexp"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
)

var existingComment = regexp.MustCompile(`(?m)\n?(?://[#@] sourceMappingURL=[^\n]*|/\*[#@] sourceMappingURL=[^*]*\*/)\s*$`)

// Init switches on map tracking for f.
func Init(f *asset.File) *asset.File {
	cp := f.Clone()
	cp.TrackMap = true
	return cp
}

// Write appends f's map as an inline sourceMappingURL comment. A tracked file
// without a map gets an identity map carrying its contents. Files that are
// not tracked are returned unchanged.
func Write(f *asset.File) (*asset.File, error) {
	if !f.TrackMap {
		return f, nil
	}
	data := f.SourceMap
	if len(data) == 0 {
		var err error
		data, err = identity(f)
		if err != nil {
			return nil, err
		}
	}

	cp := f.Clone()
	body := existingComment.ReplaceAll(cp.Contents, nil)
	uri := "data:application/json;charset=utf8;base64," + base64.StdEncoding.EncodeToString(data)
	if cp.Ext() == ".css" {
		body = append(body, []byte("\n/*# sourceMappingURL="+uri+" */\n")...)
	} else {
		body = append(body, []byte("\n//# sourceMappingURL="+uri+"\n")...)
	}
	cp.Contents = body
	cp.SourceMap = data
	return cp, nil
}

type v3 struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

func identity(f *asset.File) ([]byte, error) {
	return json.Marshal(v3{
		Version:        3,
		Sources:        []string{f.SourcePath()},
		SourcesContent: []string{string(f.Contents)},
		Names:          []string{},
	})
}

// Decode extracts the inline map from contents, if any.
func Decode(contents []byte) ([]byte, bool) {
	m := inline.FindSubmatch(contents)
	if m == nil {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(string(m[1]))
	if err != nil {
		return nil, false
	}
	return data, true
}

var inline = regexp.MustCompile(`sourceMappingURL=data:application/json;charset=utf8;base64,([A-Za-z0-9+/=]+)`)
