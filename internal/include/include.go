// Package include expands file-inclusion directives: "<!--= path -->" in
// HTML and "//= path" or "/*= path */" in scripts. Paths resolve relative to
// the including file and included files are expanded recursively.
package include

import (
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Syntax is a directive form. Pattern's first submatch is the path.
type Syntax struct {
	Name     string
	Patterns []*regexp.Regexp
}

var (
	HTML = Syntax{Name: "html", Patterns: []*regexp.Regexp{
		regexp.MustCompile(`<!--=\s*([^\s>]+)\s*-->`),
	}}
	Script = Syntax{Name: "script", Patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*//=[ \t]*(\S+)[ \t]*\r?$`),
		regexp.MustCompile(`/\*=\s*(\S+?)\s*\*/`),
	}}
)

const maxDepth = 32

// Resolver expands directives against a filesystem.
type Resolver struct {
	fs     afero.Fs
	syntax Syntax
}

func NewResolver(fsys afero.Fs, syntax Syntax) *Resolver {
	return &Resolver{fs: fsys, syntax: syntax}
}

// Expand returns contents of the file at name with every directive replaced by
// the expanded contents of the file it names. An include cycle or a missing
// file is a compile error naming the chain.
func (r *Resolver) Expand(name string, contents []byte) ([]byte, error) {
	out, err := r.expand(name, string(contents), []string{path.Clean(name)})
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (r *Resolver) expand(name, text string, chain []string) (string, error) {
	if len(chain) > maxDepth {
		return "", ferrors.CompileError("include nesting too deep").WithContext("chain", chain).Build()
	}
	dir := path.Dir(name)

	for _, pattern := range r.syntax.Patterns {
		var failure error
		text = pattern.ReplaceAllStringFunc(text, func(directive string) string {
			if failure != nil {
				return directive
			}
			m := pattern.FindStringSubmatch(directive)
			target := path.Join(dir, strings.Trim(m[1], `"'`))

			for _, seen := range chain {
				if seen == target {
					failure = ferrors.CompileError("include cycle").
						WithContext("path", name).
						WithContext("chain", append(append([]string{}, chain...), target)).
						Build()
					return directive
				}
			}

			data, err := afero.ReadFile(r.fs, target)
			if err != nil {
				failure = ferrors.WrapError(err, ferrors.CategoryCompile, "include not found").
					WithContext("path", name).
					WithContext("include", target).
					Build()
				return directive
			}
			nested, err := r.expand(target, string(data), append(chain, target))
			if err != nil {
				failure = err
				return directive
			}
			out := indent(strings.TrimRight(nested, "\r\n"), leading(directive))
			if strings.HasSuffix(directive, "\r") {
				out += "\r"
			}
			return out
		})
		if failure != nil {
			return "", failure
		}
	}
	return text, nil
}

func leading(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// indent prefixes every line of s with prefix.
func indent(s, prefix string) string {
	if prefix == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
