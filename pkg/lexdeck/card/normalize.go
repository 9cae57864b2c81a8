package card

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// Row is one raw input record: column/field names mapped to whatever the
// decoder produced (strings for CSV, arbitrary JSON values for JSONL).
type Row map[string]any

var (
	headwordAliases  = []string{"headword", "term", "word", "phrase"}
	meaningENAliases = []string{"meaning_en", "definition_en", "gloss_en"}
	meaningESAliases = []string{"meaning_es", "translation_es", "gloss_es"}

	topicDelimiters = regexp.MustCompile(`[|,;]`)
)

// Normalizer maps raw rows into Cards. It is safe for reuse across files
// within a run.
type Normalizer struct {
	vocab       *config.Vocab
	maxExamples int
	strategies  []exampleStrategy
}

// NewNormalizer creates a normalizer that keeps at most maxExamples examples
// per card and canonicalizes topic names through vocab.
func NewNormalizer(vocab *config.Vocab, maxExamples int) *Normalizer {
	n := &Normalizer{vocab: vocab, maxExamples: maxExamples}
	n.strategies = []exampleStrategy{
		structuredExamples,
		n.indexedExamples,
		singleExample,
	}
	return n
}

// Normalize resolves the card fields from row. The second return value is
// false when the headword or either meaning cannot be resolved; that is a
// content decision, not an error.
func (n *Normalizer) Normalize(row Row, source string) (Card, bool) {
	headword := firstField(row, headwordAliases)
	meaningEN := firstField(row, meaningENAliases)
	meaningES := firstField(row, meaningESAliases)
	if headword == "" || meaningEN == "" || meaningES == "" {
		return Card{}, false
	}

	return Card{
		Headword:  headword,
		MeaningEN: meaningEN,
		MeaningES: meaningES,
		Topics:    n.parseTopics(firstRaw(row, "topics", "topic")),
		Examples:  n.parseExamples(row),
		Source:    source,
		Frequency: parseFloat(row["frequency"]),
	}, true
}

// parseTopics accepts either a native list or a delimiter-split string and
// returns canonicalized names, deduplicated case-insensitively in first-seen
// order.
func (n *Normalizer) parseTopics(raw any) []string {
	if raw == nil {
		return nil
	}

	var values []string
	switch t := raw.(type) {
	case []any:
		for _, item := range t {
			values = append(values, asString(item))
		}
	case []string:
		values = t
	default:
		values = topicDelimiters.Split(asString(raw), -1)
	}

	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		cleaned := textutil.CollapseSpaces(value)
		if cleaned == "" {
			continue
		}
		canonical := n.vocab.CanonicalTopic(cleaned)
		key := strings.ToLower(canonical)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// exampleStrategy extracts candidate examples from a row. Strategies are
// tried in order; the first one producing at least one example wins.
type exampleStrategy func(row Row) []Example

func (n *Normalizer) parseExamples(row Row) []Example {
	var parsed []Example
	for _, strategy := range n.strategies {
		if parsed = strategy(row); len(parsed) > 0 {
			break
		}
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].Rank != parsed[j].Rank {
			return parsed[i].Rank < parsed[j].Rank
		}
		return strings.ToLower(parsed[i].TextEN) < strings.ToLower(parsed[j].TextEN)
	})

	var deduped []Example
	seen := make(map[string]struct{})
	for _, ex := range parsed {
		key := textutil.NormalizeKey(ex.TextEN)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, ex)
		if len(deduped) >= n.maxExamples {
			break
		}
	}
	return deduped
}

// structuredExamples reads a native list of {text_en, rank}-like items.
func structuredExamples(row Row) []Example {
	items, ok := row["examples"].([]any)
	if !ok {
		return nil
	}

	var out []Example
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := textutil.CollapseSpaces(asString(firstRaw(m, "text_en", "en")))
		if text == "" {
			continue
		}
		idx := i + 1
		rank := idx
		if r, ok := asInt(m["rank"]); ok && r != 0 {
			if r < 1 {
				r = 1
			}
			rank = r
		}
		out = append(out, Example{TextEN: text, Rank: rank})
	}
	return out
}

// indexedExamples reads the fixed column sequence example_en_1..N.
func (n *Normalizer) indexedExamples(row Row) []Example {
	var out []Example
	for idx := 1; idx <= n.maxExamples; idx++ {
		text := textutil.CollapseSpaces(asString(row[fmt.Sprintf("example_en_%d", idx)]))
		if text == "" {
			continue
		}
		out = append(out, Example{TextEN: text, Rank: idx})
	}
	return out
}

// singleExample reads the unindexed example_en field as rank 1.
func singleExample(row Row) []Example {
	text := textutil.CollapseSpaces(asString(row["example_en"]))
	if text == "" {
		return nil
	}
	return []Example{{TextEN: text, Rank: 1}}
}

// firstField returns the first alias whose collapsed string value is
// non-empty.
func firstField(row Row, aliases []string) string {
	for _, alias := range aliases {
		if value := textutil.CollapseSpaces(asString(row[alias])); value != "" {
			return value
		}
	}
	return ""
}

// firstRaw returns the first key holding a usable (non-nil, non-empty)
// value.
func firstRaw(row map[string]any, keys ...string) any {
	for _, key := range keys {
		switch t := row[key].(type) {
		case nil:
		case string:
			if strings.TrimSpace(t) != "" {
				return t
			}
		case []any:
			if len(t) > 0 {
				return t
			}
		case []string:
			if len(t) > 0 {
				return t
			}
		default:
			return t
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func parseFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
