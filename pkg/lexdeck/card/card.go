// Package card defines the canonical card representation and the two passes
// that produce it from raw input rows: normalization (field-alias resolution,
// topic and example parsing) and sanitization (content rules).
package card

import (
	"regexp"
	"strings"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// Example is one example sentence attached to a card. Rank is the 1-based
// display order within the entry.
type Example struct {
	TextEN string
	Rank   int
}

// Card is the normalized in-flight representation of one vocabulary record.
type Card struct {
	Headword  string
	MeaningEN string
	MeaningES string
	Topics    []string
	Examples  []Example
	Source    string
	Frequency *float64
}

// IsMultiword reports whether the headword contains internal whitespace.
func (c Card) IsMultiword() bool {
	return strings.Contains(c.Headword, " ")
}

var firstTokenPattern = regexp.MustCompile(`^[a-z][a-z'-]*$`)

// IsPhrasalHeadword classifies a headword as a valid phrasal verb: 2 to 4
// tokens, an alphabetic first token (apostrophe/hyphen allowed), and at
// least one later token from the particle set.
func IsPhrasalHeadword(headword string, vocab *config.Vocab) bool {
	tokens := strings.Fields(strings.ToLower(textutil.CollapseSpaces(headword)))
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	if !firstTokenPattern.MatchString(tokens[0]) {
		return false
	}
	for _, tok := range tokens[1:] {
		if vocab.IsParticle(tok) {
			return true
		}
	}
	return false
}
