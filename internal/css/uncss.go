package css

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// groupingRules hold style rules whose selectors are checked.
var groupingRules = map[string]bool{
	"media":    true,
	"supports": true,
	"document": true,
	"layer":    true,
}

// Pseudo-classes that depend on user interaction or state and therefore
// cannot be matched against static markup; pseudo-elements likewise.
var dynamicPseudo = regexp.MustCompile(`(?i)::?(?:` +
	`hover|focus-within|focus-visible|focus|active|visited|link|target|checked|` +
	`indeterminate|disabled|enabled|valid|invalid|required|optional|` +
	`placeholder-shown|autofill|before|after|first-line|first-letter|selection|` +
	`placeholder|marker|backdrop|-(?:webkit|moz|ms|o)-[a-z-]+` +
	`)(?:\([^)]*\))?|::[a-z-]+(?:\([^)]*\))?`)

// Uncss removes style rules whose selectors match nothing in a set of pages.
type Uncss struct {
	pages   []*html.Node
	ignore  []string
	ignoreR []*regexp.Regexp
}

// NewUncss parses pages. Ignore entries are kept verbatim; an entry written
// as /pattern/ is matched as a regular expression against each selector.
func NewUncss(pages [][]byte, ignore []string) (*Uncss, error) {
	u := &Uncss{}
	for _, p := range pages {
		doc, err := html.Parse(bytes.NewReader(p))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryCompile, "failed to parse html page").Build()
		}
		u.pages = append(u.pages, doc)
	}
	for _, ig := range ignore {
		ig = strings.TrimSpace(ig)
		if len(ig) > 2 && strings.HasPrefix(ig, "/") && strings.HasSuffix(ig, "/") {
			re, err := regexp.Compile(ig[1 : len(ig)-1])
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid uncss ignore pattern").
					WithContext("pattern", ig).
					Build()
			}
			u.ignoreR = append(u.ignoreR, re)
			continue
		}
		u.ignore = append(u.ignore, normalizeSelector(ig))
	}
	return u, nil
}

// Strip returns src without unused rules. Rules inside @keyframes,
// @font-face and other non-grouping at-rules are kept; grouping rules left
// empty are dropped.
func (u *Uncss) Strip(src []byte) ([]byte, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	nodes, trailing, _ := parseBlock(toks, 0)
	kept := u.filter(nodes)

	var b strings.Builder
	render(&b, kept)
	b.WriteString(join(trailing))
	return []byte(b.String()), nil
}

func (u *Uncss) filter(nodes []*node) []*node {
	out := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		if !n.hasBlock {
			out = append(out, n)
			continue
		}
		if name := n.atName(); name != "" {
			if !groupingRules[name] {
				out = append(out, n)
				continue
			}
			children := u.filter(n.block)
			if !hasRule(children) {
				continue
			}
			cp := *n
			cp.block = children
			out = append(out, &cp)
			continue
		}
		if prelude, ok := u.keepSelectors(n.prelude); ok {
			cp := *n
			cp.prelude = prelude
			out = append(out, &cp)
		}
	}
	return out
}

func hasRule(nodes []*node) bool {
	for _, n := range nodes {
		if n.hasBlock {
			return true
		}
	}
	return false
}

// keepSelectors drops the selectors of a rule prelude that match nothing.
// It reports false when none survive.
func (u *Uncss) keepSelectors(prelude []token) ([]token, bool) {
	groups := splitSelectors(prelude)
	var kept [][]token
	for _, g := range groups {
		if u.used(strings.TrimSpace(join(g))) {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	if len(kept) == len(groups) {
		return prelude, true
	}

	var out []token
	for i, g := range kept {
		if i > 0 {
			out = append(out, token{tt: css.CommaToken, data: ","})
		}
		out = append(out, g...)
	}
	return out, true
}

func splitSelectors(prelude []token) [][]token {
	var (
		groups  [][]token
		current []token
		depth   int
	)
	for _, t := range prelude {
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				groups = append(groups, current)
				current = nil
				continue
			}
		}
		current = append(current, t)
	}
	return append(groups, current)
}

func (u *Uncss) used(selector string) bool {
	norm := normalizeSelector(selector)
	for _, ig := range u.ignore {
		if ig == norm {
			return true
		}
	}
	for _, re := range u.ignoreR {
		if re.MatchString(selector) {
			return true
		}
	}

	static := strings.TrimSpace(dynamicPseudo.ReplaceAllString(selector, ""))
	static = strings.TrimRight(static, " >+~")
	if static == "" {
		return true
	}
	sel, err := cascadia.Compile(static)
	if err != nil {
		return true
	}
	for _, page := range u.pages {
		if sel.MatchFirst(page) != nil {
			return true
		}
	}
	return false
}

func normalizeSelector(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
