package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexdeck.db")
	st, err := Open(context.Background(), path, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureTopicIdempotentWithinTx(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	id1, created, err := tx.EnsureTopic(ctx, "Traveling")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first EnsureTopic should create")
	}
	id2, created, err := tx.EnsureTopic(ctx, " traveling ")
	if err != nil {
		t.Fatal(err)
	}
	if created || id2 != id1 {
		t.Errorf("second EnsureTopic = (%d, %v), want (%d, false)", id2, created, id1)
	}
}

func TestEnsureTopicAcrossCommits(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id1, _, err := tx.EnsureTopic(ctx, "Food")
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, err = st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	id2, created, err := tx.EnsureTopic(ctx, "FOOD")
	if err != nil {
		t.Fatal(err)
	}
	if created || id2 != id1 {
		t.Errorf("EnsureTopic after commit = (%d, %v), want (%d, false)", id2, created, id1)
	}
}

func TestEnsureTopicRecoversFromUniqueViolation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id1, _, err := tx.EnsureTopic(ctx, "Food")
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	// Forget the cached topic so the insert hits the unique index, the way
	// a concurrent run's insert would after our cache load.
	tx, err = st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	run := tx.(*runTx)
	delete(run.topics, "food")

	id2, created, err := run.EnsureTopic(ctx, "food")
	if err != nil {
		t.Fatal(err)
	}
	if created || id2 != id1 {
		t.Fatalf("recovered EnsureTopic = (%d, %v), want (%d, false)", id2, created, id1)
	}
	if cached, ok := run.topics["food"]; !ok || cached != id1 {
		t.Errorf("fallback lookup should repopulate the cache, got %d, %v", cached, ok)
	}
}

func TestUpsertEntry(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	e := store.Entry{Headword: "give up", MeaningEN: "to stop trying", MeaningES: "rendirse"}
	id, created, updated, err := tx.UpsertEntry(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if !created || updated {
		t.Fatalf("first upsert = created %v, updated %v", created, updated)
	}

	// identical record is a no-op
	id2, created, updated, err := tx.UpsertEntry(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if created || updated || id2 != id {
		t.Fatalf("repeat upsert = (%d, %v, %v)", id2, created, updated)
	}

	// changed meanings update in place, case-insensitive on headword
	e.Headword = "Give Up"
	e.MeaningEN = "to abandon an effort"
	id3, created, updated, err := tx.UpsertEntry(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if created || !updated || id3 != id {
		t.Fatalf("meaning change = (%d, %v, %v)", id3, created, updated)
	}
}

func TestSyncExamples(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	id, _, _, err := tx.UpsertEntry(ctx, store.Entry{Headword: "run", MeaningEN: "to move fast", MeaningES: "correr"})
	if err != nil {
		t.Fatal(err)
	}

	created, updated, err := tx.SyncExamples(ctx, id, []store.Example{
		{TextEN: "He runs.", Rank: 1},
		{TextEN: "They ran.", Rank: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 || updated != 0 {
		t.Fatalf("first sync = (%d, %d)", created, updated)
	}

	// same text in different case dedupes; changed rank updates
	created, updated, err = tx.SyncExamples(ctx, id, []store.Example{
		{TextEN: "he runs.", Rank: 5},
		{TextEN: "They ran.", Rank: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 || updated != 1 {
		t.Fatalf("second sync = (%d, %d)", created, updated)
	}

	// zero rank falls back to the next free rank
	created, _, err = tx.SyncExamples(ctx, id, []store.Example{{TextEN: "We all run."}})
	if err != nil {
		t.Fatal(err)
	}
	if created != 1 {
		t.Fatalf("third sync created = %d", created)
	}
	var rank int
	row := tx.(*runTx).tx.QueryRow(`SELECT "rank" FROM examples WHERE lower(text_en) = lower(?)`, "We all run.")
	if err := row.Scan(&rank); err != nil {
		t.Fatal(err)
	}
	if rank != 3 {
		t.Errorf("fallback rank = %d, want 3", rank)
	}
}

func TestAttachTopics(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	topicID, _, err := tx.EnsureTopic(ctx, "Mixed")
	if err != nil {
		t.Fatal(err)
	}
	entryID, _, _, err := tx.UpsertEntry(ctx, store.Entry{Headword: "run", MeaningEN: "to move fast", MeaningES: "correr"})
	if err != nil {
		t.Fatal(err)
	}

	linked, err := tx.AttachTopics(ctx, entryID, []int64{topicID})
	if err != nil {
		t.Fatal(err)
	}
	if linked != 1 {
		t.Fatalf("first attach linked = %d", linked)
	}
	linked, err = tx.AttachTopics(ctx, entryID, []int64{topicID})
	if err != nil {
		t.Fatal(err)
	}
	if linked != 0 {
		t.Fatalf("repeat attach linked = %d", linked)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := tx.EnsureTopic(ctx, "Health"); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := tx.UpsertEntry(ctx, store.Entry{Headword: "run", MeaningEN: "x", MeaningES: "y"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	tx, err = st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	_, created, err := tx.EnsureTopic(ctx, "Health")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("rolled-back topic should not survive")
	}
	_, created, _, err = tx.UpsertEntry(ctx, store.Entry{Headword: "run", MeaningEN: "x", MeaningES: "y"})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("rolled-back entry should not survive")
	}
}

func TestBaseTopicNotSuggested(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	if _, _, err := tx.EnsureTopic(ctx, "Mixed"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := tx.EnsureTopic(ctx, "Food"); err != nil {
		t.Fatal(err)
	}

	run := tx.(*runTx)
	var suggested int
	if err := run.tx.QueryRow(`SELECT is_suggested FROM topics WHERE name = 'Mixed'`).Scan(&suggested); err != nil {
		t.Fatal(err)
	}
	if suggested != 0 {
		t.Error("base topic must not be marked suggested")
	}
	if err := run.tx.QueryRow(`SELECT is_suggested FROM topics WHERE name = 'Food'`).Scan(&suggested); err != nil {
		t.Fatal(err)
	}
	if suggested != 1 {
		t.Error("non-base topics must be marked suggested")
	}
}
