// Package topics infers a single topic for cards that arrive without one,
// by scoring each configured topic's keyword list against the card text.
package topics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/lexdeck/pkg/lexdeck/card"
	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// Classifier assigns at most one topic per card.
type Classifier struct {
	vocab    *config.Vocab
	patterns *textutil.Patterns
}

// New creates a classifier over vocab's keyword tables. The pattern cache
// may be shared with the sanitizer.
func New(vocab *config.Vocab, patterns *textutil.Patterns) *Classifier {
	return &Classifier{vocab: vocab, patterns: patterns}
}

// Infer returns the inferred canonical topic name for the card, or false
// when no topic clears the floor-and-margin rule. Cards carrying explicit
// topics are never classified.
//
// Headword matches weigh HeadwordWeight, each meaning MeaningWeight, each
// example ExampleWeight. Within a text, a multi-word keyword counts
// PhraseHit per word-boundary phrase match and a single-word keyword counts
// 1 per token match. The winner must score at least HitFloor and beat the
// runner-up by HitMargin; the margin keeps noisy single-keyword hits from
// mis-tagging ambiguous cards.
func (c *Classifier) Infer(cd card.Card) (string, bool) {
	if len(cd.Topics) > 0 {
		return "", false
	}

	s := c.vocab.Scoring

	type scoredTopic struct {
		key   string
		score int
	}
	var scores []scoredTopic
	for key, keywords := range c.vocab.TopicKeywords {
		total := c.hits(cd.Headword, keywords) * s.HeadwordWeight
		total += c.hits(cd.MeaningEN, keywords) * s.MeaningWeight
		total += c.hits(cd.MeaningES, keywords) * s.MeaningWeight
		for _, ex := range cd.Examples {
			total += c.hits(ex.TextEN, keywords) * s.ExampleWeight
		}
		if total > 0 {
			scores = append(scores, scoredTopic{key: key, score: total})
		}
	}
	if len(scores) == 0 {
		return "", false
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].key > scores[j].key
	})

	top := scores[0]
	second := 0
	if len(scores) > 1 {
		second = scores[1].score
	}
	if top.score < s.HitFloor || top.score < second+s.HitMargin {
		return "", false
	}

	if canonical, ok := c.vocab.CanonicalTopics[top.key]; ok {
		return canonical, true
	}
	return titleWords(top.key), true
}

// hits counts weighted keyword occurrences in one text.
func (c *Classifier) hits(text string, keywords []string) int {
	lowered := strings.ToLower(text)
	tokens := make(map[string]struct{})
	for _, tok := range textutil.WordTokens(text) {
		tokens[tok] = struct{}{}
	}

	total := 0
	for _, raw := range keywords {
		kw := strings.ToLower(textutil.CollapseSpaces(raw))
		if kw == "" {
			continue
		}
		if strings.Contains(kw, " ") {
			re, err := c.patterns.Get(kw)
			if err != nil {
				continue
			}
			if re.MatchString(lowered) {
				total += c.vocab.Scoring.PhraseHit
			}
		} else if _, ok := tokens[kw]; ok {
			total++
		}
	}
	return total
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
