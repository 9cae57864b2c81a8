package textutil

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Patterns is a bounded cache of compiled phrase patterns. Ingest runs
// compile one pattern per multi-word headword and per multi-word keyword;
// headwords repeat across input files, so compilations are shared.
type Patterns struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

// NewPatterns creates a pattern cache holding at most size entries.
func NewPatterns(size int) (*Patterns, error) {
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, err
	}
	return &Patterns{cache: cache}, nil
}

// Get returns the compiled word-boundary pattern for phrase, compiling and
// caching it on first use.
func (p *Patterns) Get(phrase string) (*regexp.Regexp, error) {
	key := NormalizeKey(phrase)
	if re, ok := p.cache.Get(key); ok {
		return re, nil
	}
	re, err := CompilePhrasePattern(key)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, re)
	return re, nil
}
