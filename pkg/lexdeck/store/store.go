// Package store defines the persistence interface for the ingest pipeline.
package store

import (
	"context"
	"time"
)

// Store opens transactional ingest runs against a relational backend.
type Store interface {
	// Begin opens one run's transaction and loads the lookup caches.
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is the merge surface of one ingest run. All writes share the run's
// transaction: Commit publishes everything atomically, Rollback discards
// everything. Methods report what they did (created/updated) so the caller
// can own the run statistics.
type Tx interface {
	// EnsureTopic canonicalizes name and returns the topic id, creating the
	// topic if needed. A uniqueness race with a concurrent run is recovered
	// via a fallback lookup.
	EnsureTopic(ctx context.Context, name string) (id int64, created bool, err error)

	// UpsertEntry inserts the entry or, when an entry with the same
	// normalized headword exists and either meaning differs, updates both
	// meanings and the modification timestamp.
	UpsertEntry(ctx context.Context, e Entry) (id int64, created, updated bool, err error)

	// SyncExamples inserts unseen examples and fixes ranks of existing ones.
	// Examples are never deleted.
	SyncExamples(ctx context.Context, entryID int64, examples []Example) (created, updated int, err error)

	// AttachTopics links the entry to each topic, ignoring pairs that
	// already exist. Returns how many new links were made.
	AttachTopics(ctx context.Context, entryID int64, topicIDs []int64) (linked int, err error)

	Commit() error
	Rollback() error
}

// Topic is a stored topic tag. Name is unique case-insensitively.
type Topic struct {
	ID          int64
	Name        string
	IsSuggested bool
	CreatedAt   time.Time
}

// Entry is a stored lexical entry, unique on its normalized headword.
type Entry struct {
	ID        int64
	Headword  string
	MeaningEN string
	MeaningES string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Example is an example sentence owned by its entry, unique per entry on
// normalized text.
type Example struct {
	ID        int64
	EntryID   int64
	TextEN    string
	Rank      int
	CreatedAt time.Time
}
