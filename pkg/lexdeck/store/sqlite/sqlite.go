// Package sqlite implements store.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db    *sql.DB
	vocab *config.Vocab
}

// Open opens a SQLite database with WAL mode enabled, foreign keys on, and
// the schema initialized. The vocab supplies topic-name canonicalization and
// the base topic.
func Open(ctx context.Context, path string, vocab *config.Vocab) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, vocab: vocab}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	is_suggested INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_topics_name ON topics(lower(name));

CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	headword TEXT NOT NULL,
	meaning_en TEXT NOT NULL,
	meaning_es TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_headword ON entries(lower(headword));

CREATE TABLE IF NOT EXISTS examples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id INTEGER NOT NULL,
	text_en TEXT NOT NULL,
	"rank" INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	FOREIGN KEY(entry_id) REFERENCES entries(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_examples_entry_text ON examples(entry_id, lower(text_en));

CREATE TABLE IF NOT EXISTS topic_entries (
	topic_id INTEGER NOT NULL,
	entry_id INTEGER NOT NULL,
	added_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	PRIMARY KEY(topic_id, entry_id),
	FOREIGN KEY(topic_id) REFERENCES topics(id) ON DELETE CASCADE,
	FOREIGN KEY(entry_id) REFERENCES entries(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Begin opens the run's transaction and loads the three lookup caches:
// topic name → id, normalized headword → entry, and per-entry example texts.
func (s *sqliteStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	run := &runTx{
		tx:       tx,
		vocab:    s.vocab,
		topics:   make(map[string]int64),
		entries:  make(map[string]*entryInfo),
		examples: make(map[int64]map[string]*exampleInfo),
	}
	if err := run.loadCaches(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	return run, nil
}

type entryInfo struct {
	id        int64
	meaningEN string
	meaningES string
}

type exampleInfo struct {
	id   int64
	rank int
}

// runTx is one ingest run's transaction plus its lookup caches. The caches
// are scoped to this run and die with it.
type runTx struct {
	tx       *sql.Tx
	vocab    *config.Vocab
	topics   map[string]int64                  // lower(name) → id
	entries  map[string]*entryInfo             // normalized headword → entry
	examples map[int64]map[string]*exampleInfo // entry id → normalized text → example
	nextRank map[int64]int
}

func (r *runTx) loadCaches(ctx context.Context) error {
	rows, err := r.tx.QueryContext(ctx, `SELECT id, name FROM topics`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		r.topics[strings.ToLower(name)] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.tx.QueryContext(ctx, `SELECT id, headword, meaning_en, meaning_es FROM entries`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var info entryInfo
		var headword string
		if err := rows.Scan(&info.id, &headword, &info.meaningEN, &info.meaningES); err != nil {
			rows.Close()
			return err
		}
		r.entries[textutil.NormalizeKey(headword)] = &info
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	r.nextRank = make(map[int64]int)
	rows, err = r.tx.QueryContext(ctx, `SELECT id, entry_id, text_en, "rank" FROM examples`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, entryID int64
		var text string
		var rank int
		if err := rows.Scan(&id, &entryID, &text, &rank); err != nil {
			rows.Close()
			return err
		}
		if r.examples[entryID] == nil {
			r.examples[entryID] = make(map[string]*exampleInfo)
		}
		r.examples[entryID][textutil.NormalizeKey(text)] = &exampleInfo{id: id, rank: rank}
		if rank >= r.nextRank[entryID] {
			r.nextRank[entryID] = rank + 1
		}
	}
	rows.Close()
	return rows.Err()
}

// EnsureTopic implements store.Tx. A uniqueness violation means another
// process created the topic between our cache load and the insert; fall
// back to a case-insensitive lookup.
func (r *runTx) EnsureTopic(ctx context.Context, name string) (int64, bool, error) {
	canonical := r.vocab.CanonicalTopic(name)
	key := strings.ToLower(canonical)
	if id, ok := r.topics[key]; ok {
		return id, false, nil
	}

	isSuggested := !strings.EqualFold(canonical, r.vocab.BaseTopic)

	var id int64
	created := true
	err := r.tx.QueryRowContext(ctx, `
INSERT INTO topics (name, is_suggested) VALUES (?, ?)
RETURNING id;
`, canonical, boolToInt(isSuggested)).Scan(&id)
	if err != nil {
		if !isUniqueConstraintErr(err) {
			return 0, false, fmt.Errorf("insert topic %q: %w", canonical, err)
		}
		created = false
		err = r.tx.QueryRowContext(ctx,
			`SELECT id FROM topics WHERE lower(name) = lower(?)`, canonical).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("lookup topic %q: %w", canonical, err)
		}
	}

	r.topics[key] = id
	return id, created, nil
}

// UpsertEntry implements store.Tx.
func (r *runTx) UpsertEntry(ctx context.Context, e store.Entry) (int64, bool, bool, error) {
	key := textutil.NormalizeKey(e.Headword)
	existing := r.entries[key]
	if existing == nil {
		var id int64
		err := r.tx.QueryRowContext(ctx, `
INSERT INTO entries (headword, meaning_en, meaning_es) VALUES (?, ?, ?)
RETURNING id;
`, e.Headword, e.MeaningEN, e.MeaningES).Scan(&id)
		if err != nil {
			return 0, false, false, fmt.Errorf("insert entry %q: %w", e.Headword, err)
		}
		r.entries[key] = &entryInfo{id: id, meaningEN: e.MeaningEN, meaningES: e.MeaningES}
		return id, true, false, nil
	}

	if existing.meaningEN == e.MeaningEN && existing.meaningES == e.MeaningES {
		return existing.id, false, false, nil
	}

	_, err := r.tx.ExecContext(ctx, `
UPDATE entries
SET meaning_en = ?, meaning_es = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
WHERE id = ?;
`, e.MeaningEN, e.MeaningES, existing.id)
	if err != nil {
		return 0, false, false, fmt.Errorf("update entry %q: %w", e.Headword, err)
	}
	existing.meaningEN = e.MeaningEN
	existing.meaningES = e.MeaningES
	return existing.id, false, true, nil
}

// SyncExamples implements store.Tx.
func (r *runTx) SyncExamples(ctx context.Context, entryID int64, examples []store.Example) (int, int, error) {
	if len(examples) == 0 {
		return 0, 0, nil
	}

	cache := r.examples[entryID]
	if cache == nil {
		cache = make(map[string]*exampleInfo)
		r.examples[entryID] = cache
	}

	created, updated := 0, 0
	for _, ex := range examples {
		rank := ex.Rank
		if rank < 1 {
			rank = r.nextRank[entryID]
			if rank < 1 {
				rank = 1
			}
		}

		key := textutil.NormalizeKey(ex.TextEN)
		existing := cache[key]
		if existing == nil {
			var id int64
			err := r.tx.QueryRowContext(ctx, `
INSERT INTO examples (entry_id, text_en, "rank") VALUES (?, ?, ?)
RETURNING id;
`, entryID, ex.TextEN, rank).Scan(&id)
			if err != nil {
				return created, updated, fmt.Errorf("insert example for entry %d: %w", entryID, err)
			}
			cache[key] = &exampleInfo{id: id, rank: rank}
			if rank >= r.nextRank[entryID] {
				r.nextRank[entryID] = rank + 1
			}
			created++
			continue
		}

		if existing.rank != rank {
			if _, err := r.tx.ExecContext(ctx,
				`UPDATE examples SET "rank" = ? WHERE id = ?`, rank, existing.id); err != nil {
				return created, updated, fmt.Errorf("update example %d: %w", existing.id, err)
			}
			existing.rank = rank
			updated++
		}
	}
	return created, updated, nil
}

// AttachTopics implements store.Tx.
func (r *runTx) AttachTopics(ctx context.Context, entryID int64, topicIDs []int64) (int, error) {
	linked := 0
	for _, topicID := range topicIDs {
		res, err := r.tx.ExecContext(ctx, `
INSERT OR IGNORE INTO topic_entries (topic_id, entry_id) VALUES (?, ?);
`, topicID, entryID)
		if err != nil {
			return linked, fmt.Errorf("link topic %d to entry %d: %w", topicID, entryID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			linked++
		}
	}
	return linked, nil
}

// Commit implements store.Tx.
func (r *runTx) Commit() error {
	return r.tx.Commit()
}

// Rollback implements store.Tx.
func (r *runTx) Rollback() error {
	return r.tx.Rollback()
}

// isUniqueConstraintErr returns true when the error indicates a
// unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
