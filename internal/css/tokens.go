// Package css rewrites compiled stylesheets: vendor prefixing and removal of
// rules no page uses. Both work on tdewolff tokens so untouched text is
// kept byte for byte.
package css

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

type token struct {
	tt   css.TokenType
	data string
}

func lex(src []byte) ([]token, error) {
	l := css.NewLexer(parse.NewInputBytes(src))
	var toks []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, ferrors.WrapError(err, ferrors.CategoryCompile, "invalid css").Build()
			}
			return toks, nil
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

func join(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.data)
	}
	return b.String()
}

// node is a statement: a declaration or at-rule ending in ";" (block nil)
// or a prelude followed by a braced block.
type node struct {
	prelude  []token
	block    []*node
	hasBlock bool
	// trailing holds whitespace and comments between the last child and "}".
	trailing []token
}

// parseBlock reads statements from toks[i:] until an unmatched "}" or the
// end, returning the statements and the index after the closing brace.
func parseBlock(toks []token, i int) ([]*node, []token, int) {
	var out []*node
	var pending []token
	depth := 0
	for i < len(toks) {
		t := toks[i]
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.SemicolonToken:
			if depth == 0 {
				pending = append(pending, t)
				out = append(out, &node{prelude: pending})
				pending = nil
				i++
				continue
			}
		case css.LeftBraceToken:
			if depth == 0 {
				children, trailing, next := parseBlock(toks, i+1)
				out = append(out, &node{prelude: pending, block: children, hasBlock: true, trailing: trailing})
				pending = nil
				i = next
				continue
			}
		case css.RightBraceToken:
			if depth == 0 {
				if isBlank(pending) {
					return out, pending, i + 1
				}
				out = append(out, &node{prelude: pending})
				return out, nil, i + 1
			}
		}
		pending = append(pending, t)
		i++
	}
	if len(pending) > 0 {
		if isBlank(pending) {
			return out, pending, i
		}
		out = append(out, &node{prelude: pending})
	}
	return out, nil, i
}

func isBlank(toks []token) bool {
	for _, t := range toks {
		if t.tt != css.WhitespaceToken && t.tt != css.CommentToken {
			return false
		}
	}
	return true
}

func render(b *strings.Builder, nodes []*node) {
	for _, n := range nodes {
		b.WriteString(join(n.prelude))
		if n.hasBlock {
			b.WriteString("{")
			render(b, n.block)
			b.WriteString(join(n.trailing))
			b.WriteString("}")
		}
	}
}

// atName returns the lower-cased at-keyword starting n, without "@".
func (n *node) atName() string {
	for _, t := range n.prelude {
		switch t.tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		case css.AtKeywordToken:
			return strings.ToLower(strings.TrimPrefix(t.data, "@"))
		}
		return ""
	}
	return ""
}
