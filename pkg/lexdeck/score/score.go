// Package score implements the heuristic quality score used to gate records
// before they reach the store.
package score

import (
	"strings"
	"unicode/utf8"

	"github.com/cognicore/lexdeck/pkg/lexdeck/card"
	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
)

const (
	maxHeadwordLen = 90
	maxMeaningLen  = 250
)

// Scorer computes quality scores. It is pure: the same card always yields
// the same score.
type Scorer struct {
	vocab *config.Vocab
}

// New creates a scorer using vocab's particle set for the phrasal-verb
// heuristic.
func New(vocab *config.Vocab) *Scorer {
	return &Scorer{vocab: vocab}
}

// Score returns the card's quality score, clamped to [0,100].
func (s *Scorer) Score(c card.Card) int {
	score := 0
	if c.Headword != "" && c.MeaningEN != "" && c.MeaningES != "" {
		score += 45
	}

	wordCount := len(strings.Fields(c.Headword))
	switch {
	case wordCount == 1:
		score += 20
	case card.IsPhrasalHeadword(c.Headword, s.vocab):
		score += 20
	case wordCount <= 7:
		score += 20
	case wordCount <= 12:
		score += 10
	default:
		score -= 10
	}

	if n := len(c.Examples); n > 0 {
		bonus := n * 10
		if bonus > 20 {
			bonus = 20
		}
		score += bonus
	} else {
		score -= 5
	}

	if c.Frequency != nil {
		f := *c.Frequency
		switch {
		case f >= 0 && f <= 1:
			score += int(f * 10)
		case f > 1:
			if f > 10000 {
				f = 10000
			}
			if bonus := 10 - int(f/1000); bonus > 0 {
				score += bonus
			}
		}
	}

	if utf8.RuneCountInString(c.Headword) > maxHeadwordLen {
		score -= 15
	}
	if utf8.RuneCountInString(c.MeaningEN) > maxMeaningLen || utf8.RuneCountInString(c.MeaningES) > maxMeaningLen {
		score -= 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
