// Package memstore is an in-memory implementation of store.Store for tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

type linkKey struct {
	topicID int64
	entryID int64
}

type state struct {
	nextTopicID   int64
	nextEntryID   int64
	nextExampleID int64
	topics        map[string]store.Topic             // lower(name) → topic
	entries       map[string]store.Entry             // normalized headword → entry
	examples      map[int64]map[string]store.Example // entry id → normalized text → example
	links         map[linkKey]time.Time
}

// Store is an in-memory store.Store. Begin snapshots the state; Commit
// publishes the transaction's copy, Rollback discards it.
type Store struct {
	mu    sync.Mutex
	vocab *config.Vocab
	state state
}

// New creates an empty in-memory store.
func New(vocab *config.Vocab) *Store {
	return &Store{
		vocab: vocab,
		state: state{
			nextTopicID:   1,
			nextEntryID:   1,
			nextExampleID: 1,
			topics:        make(map[string]store.Topic),
			entries:       make(map[string]store.Entry),
			examples:      make(map[int64]map[string]store.Example),
			links:         make(map[linkKey]time.Time),
		},
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Begin implements store.Store.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{parent: s, vocab: s.vocab, st: cloneState(s.state)}, nil
}

// Counts returns the number of committed topics, entries, examples, and
// topic links.
func (s *Store) Counts() (topics, entries, examples, links int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, byText := range s.state.examples {
		examples += len(byText)
	}
	return len(s.state.topics), len(s.state.entries), examples, len(s.state.links)
}

// TopicID returns the id of the topic with the given name, matched
// case-insensitively.
func (s *Store) TopicID(name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.topics[strings.ToLower(textutil.CollapseSpaces(name))]
	return t.ID, ok
}

// EntryByHeadword returns the committed entry for the normalized headword.
func (s *Store) EntryByHeadword(headword string) (store.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.entries[textutil.NormalizeKey(headword)]
	return e, ok
}

// ExamplesFor returns the committed examples of an entry, ordered by rank
// then text.
func (s *Store) ExamplesFor(entryID int64) []store.Example {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Example
	for _, ex := range s.state.examples[entryID] {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].TextEN < out[j].TextEN
	})
	return out
}

// HasLink reports whether the topic-entry link exists.
func (s *Store) HasLink(topicID, entryID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.links[linkKey{topicID: topicID, entryID: entryID}]
	return ok
}

type memTx struct {
	parent *Store
	vocab  *config.Vocab
	st     state
	done   bool
}

// EnsureTopic implements store.Tx.
func (t *memTx) EnsureTopic(ctx context.Context, name string) (int64, bool, error) {
	canonical := t.vocab.CanonicalTopic(name)
	key := strings.ToLower(canonical)
	if topic, ok := t.st.topics[key]; ok {
		return topic.ID, false, nil
	}

	topic := store.Topic{
		ID:          t.st.nextTopicID,
		Name:        canonical,
		IsSuggested: !strings.EqualFold(canonical, t.vocab.BaseTopic),
		CreatedAt:   time.Now(),
	}
	t.st.nextTopicID++
	t.st.topics[key] = topic
	return topic.ID, true, nil
}

// UpsertEntry implements store.Tx.
func (t *memTx) UpsertEntry(ctx context.Context, e store.Entry) (int64, bool, bool, error) {
	key := textutil.NormalizeKey(e.Headword)
	existing, ok := t.st.entries[key]
	if !ok {
		now := time.Now()
		e.ID = t.st.nextEntryID
		e.CreatedAt = now
		e.UpdatedAt = now
		t.st.nextEntryID++
		t.st.entries[key] = e
		return e.ID, true, false, nil
	}

	if existing.MeaningEN == e.MeaningEN && existing.MeaningES == e.MeaningES {
		return existing.ID, false, false, nil
	}
	existing.MeaningEN = e.MeaningEN
	existing.MeaningES = e.MeaningES
	existing.UpdatedAt = time.Now()
	t.st.entries[key] = existing
	return existing.ID, false, true, nil
}

// SyncExamples implements store.Tx.
func (t *memTx) SyncExamples(ctx context.Context, entryID int64, examples []store.Example) (int, int, error) {
	byText := t.st.examples[entryID]
	if byText == nil {
		byText = make(map[string]store.Example)
		t.st.examples[entryID] = byText
	}

	created, updated := 0, 0
	for _, ex := range examples {
		key := textutil.NormalizeKey(ex.TextEN)
		existing, ok := byText[key]
		if !ok {
			ex.ID = t.st.nextExampleID
			ex.EntryID = entryID
			ex.CreatedAt = time.Now()
			t.st.nextExampleID++
			byText[key] = ex
			created++
			continue
		}
		if existing.Rank != ex.Rank {
			existing.Rank = ex.Rank
			byText[key] = existing
			updated++
		}
	}
	return created, updated, nil
}

// AttachTopics implements store.Tx.
func (t *memTx) AttachTopics(ctx context.Context, entryID int64, topicIDs []int64) (int, error) {
	linked := 0
	for _, topicID := range topicIDs {
		key := linkKey{topicID: topicID, entryID: entryID}
		if _, ok := t.st.links[key]; ok {
			continue
		}
		t.st.links[key] = time.Now()
		linked++
	}
	return linked, nil
}

// Commit publishes the transaction's state to the parent store.
func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	t.parent.state = t.st
	return nil
}

// Rollback discards the transaction's state.
func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

func cloneState(s state) state {
	out := state{
		nextTopicID:   s.nextTopicID,
		nextEntryID:   s.nextEntryID,
		nextExampleID: s.nextExampleID,
		topics:        make(map[string]store.Topic, len(s.topics)),
		entries:       make(map[string]store.Entry, len(s.entries)),
		examples:      make(map[int64]map[string]store.Example, len(s.examples)),
		links:         make(map[linkKey]time.Time, len(s.links)),
	}
	for k, v := range s.topics {
		out.topics[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for id, byText := range s.examples {
		m := make(map[string]store.Example, len(byText))
		for k, v := range byText {
			m[k] = v
		}
		out.examples[id] = m
	}
	for k, v := range s.links {
		out.links[k] = v
	}
	return out
}
