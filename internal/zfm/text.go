package zfm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CollectText returns all raw text under n concatenated together.
func CollectText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// CollectTextAll is CollectText over a list of nodes.
func CollectTextAll(nodes []ast.Node, source []byte) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(CollectText(n, source))
	}
	return b.String()
}

var (
	closingDoubleRe = regexp.MustCompile(`([a-zA-Z0-9.,?!;:'"])"`)
	closingSingleRe = regexp.MustCompile(`([a-zA-Z0-9.,?!;:'"])'`)
)

// Smartify replaces straight quotes with curly quotes, "..." with an
// ellipsis and "--" with an em dash. The substitutions run in order.
func Smartify(text string) string {
	text = closingDoubleRe.ReplaceAllString(text, "${1}”")
	text = strings.ReplaceAll(text, `"`, "“")
	text = closingSingleRe.ReplaceAllString(text, "${1}’")
	text = strings.ReplaceAll(text, "'", "‘")
	text = strings.ReplaceAll(text, "...", "…")
	text = strings.ReplaceAll(text, "--", "—")
	return text
}

// Slugify converts text to a lowercase, hyphen-separated identifier suitable
// for URLs and HTML ids.
func Slugify(text string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
