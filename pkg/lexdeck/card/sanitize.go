package card

import (
	"sort"
	"strings"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// Sanitizer applies the second-pass content rules to normalized cards.
type Sanitizer struct {
	vocab       *config.Vocab
	maxExamples int
	patterns    *textutil.Patterns
}

// NewSanitizer creates a sanitizer. The pattern cache may be shared with the
// topic classifier.
func NewSanitizer(vocab *config.Vocab, maxExamples int, patterns *textutil.Patterns) *Sanitizer {
	return &Sanitizer{vocab: vocab, maxExamples: maxExamples, patterns: patterns}
}

// Sanitize cleans the card text fields and enforces the content rules.
// The second return value is false when the card is rejected.
//
// Rules: examples whose normalized text equals the headword or the English
// meaning are dropped; examples for a multi-word headword must contain it as
// a word-boundary phrase; multi-word headwords must pass the phrasal-verb
// heuristic, must differ from both meanings, and must keep at least one
// example. Single-word headwords are never rejected here.
func (s *Sanitizer) Sanitize(c Card) (Card, bool) {
	c.Headword = cleanText(c.Headword)
	c.MeaningEN = cleanText(c.MeaningEN)
	c.MeaningES = cleanText(c.MeaningES)

	blocked := map[string]struct{}{
		textutil.NormalizeKey(c.Headword):  {},
		textutil.NormalizeKey(c.MeaningEN): {},
	}

	multiword := c.IsMultiword()
	var phrasePattern func(string) bool
	if multiword {
		re, err := s.patterns.Get(c.Headword)
		if err != nil {
			return Card{}, false
		}
		phrasePattern = re.MatchString
	}

	sorted := make([]Example, len(c.Examples))
	copy(sorted, c.Examples)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return strings.ToLower(sorted[i].TextEN) < strings.ToLower(sorted[j].TextEN)
	})

	var cleaned []Example
	seen := make(map[string]struct{})
	for _, ex := range sorted {
		text := cleanText(ex.TextEN)
		if text == "" {
			continue
		}
		key := textutil.NormalizeKey(text)
		if _, dup := seen[key]; dup {
			continue
		}
		if _, blk := blocked[key]; blk {
			continue
		}
		if phrasePattern != nil && !phrasePattern(text) {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, Example{TextEN: text, Rank: len(cleaned) + 1})
		if len(cleaned) >= s.maxExamples {
			break
		}
	}
	c.Examples = cleaned

	if multiword {
		if !IsPhrasalHeadword(c.Headword, s.vocab) {
			return Card{}, false
		}
		headKey := textutil.NormalizeKey(c.Headword)
		if headKey == textutil.NormalizeKey(c.MeaningEN) || headKey == textutil.NormalizeKey(c.MeaningES) {
			return Card{}, false
		}
		if len(c.Examples) == 0 {
			return Card{}, false
		}
	}
	return c, true
}

// cleanText removes markup and collapses whitespace. Input rows scraped from
// web sources occasionally carry HTML in their text fields.
func cleanText(s string) string {
	return textutil.CollapseSpaces(textutil.StripHTML(s))
}
