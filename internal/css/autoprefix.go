package css

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// propertyPrefixes lists properties that still need vendor-prefixed copies.
var propertyPrefixes = map[string][]string{
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"backface-visibility":  {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask":                 {"-webkit-"},
	"mask-image":           {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-moz-", "-ms-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// valuePrefixes lists property values with prefixed alternatives.
var valuePrefixes = map[string]map[string][]string{
	"display": {
		"flex":        {"-webkit-box", "-ms-flexbox"},
		"inline-flex": {"-webkit-inline-box", "-ms-inline-flexbox"},
	},
	"position": {
		"sticky": {"-webkit-sticky"},
	},
}

type declaration struct {
	start, end int // token range, terminator excluded
	block      int
	property   string
	value      string
}

// Autoprefix inserts vendor-prefixed copies before declarations that need
// them. Copies go on the same line as the original so line-based source
// maps stay valid; existing prefixed declarations in a block are not
// duplicated.
func Autoprefix(src []byte) ([]byte, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	decls := findDeclarations(toks)
	if len(decls) == 0 {
		return src, nil
	}

	declared := map[int]map[string]bool{}
	for _, d := range decls {
		if declared[d.block] == nil {
			declared[d.block] = map[string]bool{}
		}
		declared[d.block][d.property] = true
		declared[d.block][d.property+":"+d.value] = true
	}

	byStart := make(map[int]declaration, len(decls))
	for _, d := range decls {
		byStart[d.start] = d
	}

	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(toks); i++ {
		if d, ok := byStart[i]; ok {
			raw := join(toks[d.start:d.end])
			b.WriteString(prefixedCopies(d, raw, declared[d.block]))
			b.WriteString(raw)
			i = d.end - 1
			continue
		}
		b.WriteString(toks[i].data)
	}
	return []byte(b.String()), nil
}

func prefixedCopies(d declaration, raw string, declared map[string]bool) string {
	var b strings.Builder
	body := raw
	bang := ""
	if strings.Contains(strings.ToLower(body), "!important") {
		bang = " !important"
	}

	for _, prefix := range propertyPrefixes[d.property] {
		if declared[prefix+d.property] {
			continue
		}
		b.WriteString(prefix + body + "; ")
	}
	if alts, ok := valuePrefixes[d.property][d.value]; ok {
		name := body[:strings.Index(body, ":")]
		for _, alt := range alts {
			if declared[d.property+":"+alt] {
				continue
			}
			b.WriteString(name + ": " + alt + bang + "; ")
		}
	}
	return b.String()
}

// findDeclarations returns the declarations nested inside a block.
func findDeclarations(toks []token) []declaration {
	var (
		out     []declaration
		stack   []int
		blockID int
	)
	stmtStart := true
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if stmtStart && len(stack) > 0 && t.tt == css.IdentToken {
			if end, ok := declarationEnd(toks, i); ok {
				out = append(out, declaration{
					start:    i,
					end:      end,
					block:    stack[len(stack)-1],
					property: strings.ToLower(t.data),
					value:    mainValue(toks[i+1 : end]),
				})
				i = end - 1
				stmtStart = false
				continue
			}
		}
		switch t.tt {
		case css.LeftBraceToken:
			blockID++
			stack = append(stack, blockID)
			stmtStart = true
		case css.RightBraceToken:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			stmtStart = true
		case css.SemicolonToken:
			stmtStart = true
		case css.WhitespaceToken, css.CommentToken:
		default:
			stmtStart = false
		}
	}
	return out
}

// declarationEnd reports where the statement at i ends when it is a
// declaration: an identifier and colon ended by ";" or "}" rather than "{".
func declarationEnd(toks []token, i int) (int, bool) {
	j := i + 1
	for j < len(toks) && toks[j].tt == css.WhitespaceToken {
		j++
	}
	if j >= len(toks) || toks[j].tt != css.ColonToken {
		return 0, false
	}
	depth := 0
	for ; j < len(toks); j++ {
		switch toks[j].tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.LeftBraceToken:
			if depth <= 0 {
				return 0, false
			}
		case css.SemicolonToken, css.RightBraceToken:
			if depth <= 0 {
				return trimTrailingSpace(toks, i, j), true
			}
		}
	}
	return trimTrailingSpace(toks, i, j), true
}

func trimTrailingSpace(toks []token, start, end int) int {
	for end > start && toks[end-1].tt == css.WhitespaceToken {
		end--
	}
	return end
}

// mainValue returns the value of a declaration's tokens (after the
// property) without "!important", lower-cased.
func mainValue(toks []token) string {
	var parts []string
	seenColon := false
	for _, t := range toks {
		if !seenColon {
			seenColon = t.tt == css.ColonToken
			continue
		}
		if t.tt == css.DelimToken && t.data == "!" {
			break
		}
		parts = append(parts, t.data)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, "")))
}
