// Package config holds the fixed vocabulary tables the ingest pipeline is
// parameterized with: canonical topic spellings, topic keyword lists, the
// phrasal-particle set, and classifier scoring knobs. Tables are loaded once
// at process start and passed explicitly into the components that need them.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lexdeck/pkg/lexdeck/internalerr"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// Scoring holds the classifier thresholds and hit weights. The values are
// empirically chosen; they are configuration rather than invariants so they
// can be recalibrated without a code change.
type Scoring struct {
	// HitFloor is the minimum weighted keyword score a topic needs to win.
	HitFloor int `yaml:"hit_floor"`
	// HitMargin is how far the winner must exceed the runner-up.
	HitMargin int `yaml:"hit_margin"`

	HeadwordWeight int `yaml:"headword_weight"`
	MeaningWeight  int `yaml:"meaning_weight"`
	ExampleWeight  int `yaml:"example_weight"`

	// PhraseHit is the per-match value of a multi-word keyword; single-word
	// keywords always count 1 per token match.
	PhraseHit int `yaml:"phrase_hit"`
}

// Vocab is the immutable vocabulary configuration for one process.
type Vocab struct {
	// BaseTopic is always linked to every ingested entry.
	BaseTopic string `yaml:"base_topic"`

	// CanonicalTopics maps the lowercase form of a topic name to its fixed
	// display spelling.
	CanonicalTopics map[string]string `yaml:"canonical_topics"`

	// TopicKeywords maps a topic key (lowercase) to the keywords and phrases
	// that suggest it.
	TopicKeywords map[string][]string `yaml:"topic_keywords"`

	// Particles is the closed set of English particles used by the
	// phrasal-verb heuristic.
	Particles []string `yaml:"particles"`

	Scoring Scoring `yaml:"scoring"`

	particleSet map[string]struct{}
}

// Load reads a vocab YAML file and overlays it on the defaults. Sections
// present in the file replace the corresponding defaults key by key.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load vocab: %w", err)
	}

	v := Default()
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("parse vocab: %w", err)
	}
	if err := v.finalize(); err != nil {
		return nil, err
	}
	return v, nil
}

// CanonicalTopic resolves a raw topic name to its canonical display spelling.
// Unknown names are kept as entered, whitespace-collapsed.
func (v *Vocab) CanonicalTopic(raw string) string {
	cleaned := textutil.CollapseSpaces(raw)
	if cleaned == "" {
		return cleaned
	}
	if canonical, ok := v.CanonicalTopics[strings.ToLower(cleaned)]; ok {
		return canonical
	}
	return cleaned
}

// IsParticle reports whether the lowercase token is a phrasal particle.
func (v *Vocab) IsParticle(token string) bool {
	_, ok := v.particleSet[token]
	return ok
}

func (v *Vocab) finalize() error {
	if textutil.CollapseSpaces(v.BaseTopic) == "" {
		return fmt.Errorf("%w: base_topic must not be empty", internalerr.ErrInvalidConfig)
	}
	s := v.Scoring
	if s.HitFloor < 0 || s.HitMargin < 0 ||
		s.HeadwordWeight < 0 || s.MeaningWeight < 0 || s.ExampleWeight < 0 || s.PhraseHit < 1 {
		return fmt.Errorf("%w: scoring weights out of range", internalerr.ErrInvalidConfig)
	}

	v.particleSet = make(map[string]struct{}, len(v.Particles))
	for _, p := range v.Particles {
		v.particleSet[strings.ToLower(p)] = struct{}{}
	}
	return nil
}
