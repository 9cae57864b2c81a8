// Package textutil provides the string normalization primitives shared by
// the normalizer, sanitizer, and topic classifier: whitespace collapsing,
// case-insensitive keys, word-boundary phrase matching, and HTML stripping.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	wordPattern = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)
)

// CollapseSpaces replaces every run of whitespace with a single space and
// trims the ends.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// NormalizeKey returns the collapsed, case-folded form of s, used as the
// equality key for headwords, example texts, and topic names.
func NormalizeKey(s string) string {
	return strings.ToLower(CollapseSpaces(s))
}

// CompilePhrasePattern builds a case-insensitive pattern that matches the
// phrase's tokens in order, separated by any whitespace, on word boundaries.
func CompilePhrasePattern(phrase string) (*regexp.Regexp, error) {
	parts := strings.Split(strings.ToLower(CollapseSpaces(phrase)), " ")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
}

// WordTokens extracts the lowercase word tokens of s, keeping internal
// apostrophes ("don't", "y'all").
func WordTokens(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// StripHTML returns the text content of s with any HTML markup removed.
// If s does not parse as HTML it is returned unchanged.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
