package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/internalerr"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store/memstore"
)

func newTestPipeline(t *testing.T) (*Pipeline, *memstore.Store) {
	t.Helper()
	st := memstore.New(config.Default())
	p, err := New(st, config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return p, st
}

func defaultOptions(inputs ...string) Options {
	return Options{Inputs: inputs, MinScore: 45, MaxExamples: 2}
}

const twoRows = `{"headword":"run","meaning_en":"to move fast","meaning_es":"correr","examples":[{"text_en":"He runs every day.","rank":1}],"topics":"Sports"}
{"headword":"walk","meaning_en":"to move slowly","meaning_es":"caminar"}
`

func TestRunIdempotent(t *testing.T) {
	p, st := newTestPipeline(t)
	path := writeFile(t, "in.jsonl", twoRows)
	ctx := context.Background()

	first, err := p.Run(ctx, defaultOptions(path))
	if err != nil {
		t.Fatal(err)
	}
	if first.RowsRead != 2 || first.RowsValid != 2 {
		t.Fatalf("first run stats = %+v", first)
	}
	if first.EntriesCreated != 2 || first.ExamplesCreated != 1 {
		t.Fatalf("first run stats = %+v", first)
	}
	// Mixed + Sports
	if first.TopicsCreated != 2 {
		t.Fatalf("first run topics created = %d", first.TopicsCreated)
	}
	// run: Mixed+Sports, walk: Mixed
	if first.LinksCreated != 3 {
		t.Fatalf("first run links created = %d", first.LinksCreated)
	}

	second, err := p.Run(ctx, defaultOptions(path))
	if err != nil {
		t.Fatal(err)
	}
	if second.RowsValid != 2 {
		t.Fatalf("second run stats = %+v", second)
	}
	if second.EntriesCreated != 0 || second.EntriesUpdated != 0 ||
		second.ExamplesCreated != 0 || second.ExamplesUpdated != 0 ||
		second.TopicsCreated != 0 || second.LinksCreated != 0 {
		t.Fatalf("second run must create nothing: %+v", second)
	}
	if second.RunID == first.RunID {
		t.Error("each run needs a distinct run id")
	}

	topics, entries, examples, links := st.Counts()
	if topics != 2 || entries != 2 || examples != 1 || links != 3 {
		t.Fatalf("counts = %d %d %d %d", topics, entries, examples, links)
	}
}

func TestRunDryRunLeavesStoreEmpty(t *testing.T) {
	p, st := newTestPipeline(t)
	path := writeFile(t, "in.jsonl", twoRows)

	opts := defaultOptions(path)
	opts.DryRun = true
	stats, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsValid != 2 || stats.EntriesCreated != 2 {
		t.Fatalf("dry run must still count work: %+v", stats)
	}

	topics, entries, examples, links := st.Counts()
	if topics != 0 || entries != 0 || examples != 0 || links != 0 {
		t.Fatalf("dry run leaked writes: %d %d %d %d", topics, entries, examples, links)
	}
}

func TestRunScoreGate(t *testing.T) {
	p, _ := newTestPipeline(t)
	rows := `{"headword":"run","meaning_en":"to move fast","meaning_es":"correr","examples":[{"text_en":"He runs."},{"text_en":"They ran."}]}
{"headword":"walk","meaning_en":"to move slowly","meaning_es":"caminar"}
`
	path := writeFile(t, "in.jsonl", rows)

	opts := defaultOptions(path)
	opts.MinScore = 80
	stats, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsValid != 1 || stats.RowsSkippedLowScore != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRunLimit(t *testing.T) {
	p, st := newTestPipeline(t)
	rows := `{"headword":"run","meaning_en":"to move fast","meaning_es":"correr"}
{"headword":"walk","meaning_en":"to move slowly","meaning_es":"caminar"}
{"headword":"jump","meaning_en":"to leap","meaning_es":"saltar"}
`
	path := writeFile(t, "in.jsonl", rows)

	opts := defaultOptions(path)
	opts.Limit = 1
	stats, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsRead != 2 || stats.RowsValid != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	_, entries, _, _ := st.Counts()
	if entries != 1 {
		t.Fatalf("entries = %d", entries)
	}
}

func TestRunTopicCanonicalization(t *testing.T) {
	p, st := newTestPipeline(t)
	rows := `{"headword":"run","meaning_en":"to move fast","meaning_es":"correr","topics":" traveling "}
{"headword":"walk","meaning_en":"to move slowly","meaning_es":"caminar","topics":"Traveling"}
`
	path := writeFile(t, "in.jsonl", rows)

	stats, err := p.Run(context.Background(), defaultOptions(path))
	if err != nil {
		t.Fatal(err)
	}
	// Mixed + Traveling, once each
	if stats.TopicsCreated != 2 {
		t.Fatalf("topics created = %d", stats.TopicsCreated)
	}

	travelID, ok := st.TopicID("Traveling")
	if !ok {
		t.Fatal("Traveling topic missing")
	}
	baseID, ok := st.TopicID("Mixed")
	if !ok {
		t.Fatal("base topic missing")
	}
	for _, headword := range []string{"run", "walk"} {
		entry, ok := st.EntryByHeadword(headword)
		if !ok {
			t.Fatalf("entry %q missing", headword)
		}
		if !st.HasLink(travelID, entry.ID) || !st.HasLink(baseID, entry.ID) {
			t.Errorf("entry %q missing topic links", headword)
		}
	}
}

func TestRunInfersTopicWhenAbsent(t *testing.T) {
	p, st := newTestPipeline(t)
	rows := `{"headword":"restaurant","meaning_en":"a place with a menu","meaning_es":"restaurante"}
`
	path := writeFile(t, "in.jsonl", rows)

	if _, err := p.Run(context.Background(), defaultOptions(path)); err != nil {
		t.Fatal(err)
	}
	foodID, ok := st.TopicID("Food")
	if !ok {
		t.Fatal("inferred Food topic missing")
	}
	entry, ok := st.EntryByHeadword("restaurant")
	if !ok {
		t.Fatal("entry missing")
	}
	if !st.HasLink(foodID, entry.ID) {
		t.Error("entry not linked to inferred topic")
	}
}

func TestRunSkipsUnparseableFile(t *testing.T) {
	p, st := newTestPipeline(t)
	bad := writeFile(t, "bad.jsonl", "{\"headword\":\"run\",\"meaning_en\":\"to move fast\",\"meaning_es\":\"correr\"}\nnot json\n")
	good := writeFile(t, "good.jsonl", "{\"headword\":\"walk\",\"meaning_en\":\"to move slowly\",\"meaning_es\":\"caminar\"}\n")

	stats, err := p.Run(context.Background(), defaultOptions(bad, good))
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsValid != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if _, ok := st.EntryByHeadword("walk"); !ok {
		t.Error("file after the parse failure was not processed")
	}
	if _, ok := st.EntryByHeadword("run"); !ok {
		t.Error("rows before the parse failure should be kept")
	}
}

func TestRunOptionValidation(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Run(ctx, Options{MinScore: 45, MaxExamples: 2})
	if !errors.Is(err, internalerr.ErrNoInput) {
		t.Errorf("no inputs: got %v", err)
	}
	_, err = p.Run(ctx, Options{Inputs: []string{"x.jsonl"}, MinScore: 150, MaxExamples: 2})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("bad min score: got %v", err)
	}
	_, err = p.Run(ctx, Options{Inputs: []string{"x.jsonl"}, MinScore: 45, MaxExamples: 0})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("bad max examples: got %v", err)
	}
}
