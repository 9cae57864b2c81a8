// Package ingest orchestrates one batch run: stream records from input
// files, normalize, sanitize, score-gate, resolve topics, and merge into the
// store inside a single all-or-nothing transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lexdeck/pkg/lexdeck/card"
	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/internalerr"
	"github.com/cognicore/lexdeck/pkg/lexdeck/score"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store"
	"github.com/cognicore/lexdeck/pkg/lexdeck/textutil"
	"github.com/cognicore/lexdeck/pkg/lexdeck/topics"
)

const patternCacheSize = 1024

// Options configures one run.
type Options struct {
	// Inputs are the resolved input files, processed in order.
	Inputs []string
	// MinScore is the quality-score acceptance floor, 0–100.
	MinScore int
	// MaxExamples is the per-entry cap on retained examples, at least 1.
	MaxExamples int
	// Limit caps accepted rows per run; 0 means unlimited.
	Limit int
	// DryRun executes every write but rolls the transaction back at the
	// end, leaving the store unchanged while stats stay accurate.
	DryRun bool
}

// Stats are the counters accumulated over one run. They are owned by the
// pipeline for the run's duration and never persisted.
type Stats struct {
	RunID string

	RowsRead            int
	RowsValid           int
	RowsSkippedInvalid  int
	RowsSkippedLowScore int

	EntriesCreated  int
	EntriesUpdated  int
	ExamplesCreated int
	ExamplesUpdated int
	TopicsCreated   int
	LinksCreated    int
}

// Pipeline is the ingest orchestrator. One Pipeline can execute multiple
// runs; each run gets its own transaction and store caches.
type Pipeline struct {
	store      store.Store
	vocab      *config.Vocab
	scorer     *score.Scorer
	classifier *topics.Classifier
	patterns   *textutil.Patterns
	logger     *log.Logger
}

// New creates a pipeline over the given store and vocabulary tables.
func New(st store.Store, vocab *config.Vocab, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	patterns, err := textutil.NewPatterns(patternCacheSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:      st,
		vocab:      vocab,
		scorer:     score.New(vocab),
		classifier: topics.New(vocab, patterns),
		patterns:   patterns,
		logger:     logger,
	}, nil
}

// runState carries the per-run mutable pieces through the file and row
// loops.
type runState struct {
	tx          store.Tx
	opts        Options
	stats       *Stats
	normalizer  *card.Normalizer
	sanitizer   *card.Sanitizer
	baseTopicID int64
	accepted    int
	stop        bool
}

func (r *runState) limitReached() bool {
	return r.opts.Limit > 0 && r.accepted >= r.opts.Limit
}

// Run executes one ingest run. File-level parse failures are logged and the
// file skipped; store failures abort and roll back the whole run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Stats, error) {
	stats := Stats{RunID: ulid.Make().String()}

	if opts.MinScore < 0 || opts.MinScore > 100 {
		return stats, fmt.Errorf("%w: min score must be between 0 and 100", internalerr.ErrInvalidConfig)
	}
	if opts.MaxExamples < 1 {
		return stats, fmt.Errorf("%w: max examples must be at least 1", internalerr.ErrInvalidConfig)
	}
	if len(opts.Inputs) == 0 {
		return stats, internalerr.ErrNoInput
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return stats, err
	}
	finished := false
	defer func() {
		if !finished {
			tx.Rollback()
		}
	}()

	baseTopicID, created, err := tx.EnsureTopic(ctx, p.vocab.BaseTopic)
	if err != nil {
		return stats, err
	}
	if created {
		stats.TopicsCreated++
	}

	run := &runState{
		tx:          tx,
		opts:        opts,
		stats:       &stats,
		normalizer:  card.NewNormalizer(p.vocab, opts.MaxExamples),
		sanitizer:   card.NewSanitizer(p.vocab, opts.MaxExamples, p.patterns),
		baseTopicID: baseTopicID,
	}

	for _, path := range opts.Inputs {
		if run.stop {
			break
		}
		if err := p.runFile(ctx, run, path); err != nil {
			return stats, err
		}
	}

	finished = true
	if opts.DryRun {
		if err := tx.Rollback(); err != nil {
			return stats, err
		}
		p.logger.Printf("run %s: dry-run enabled, transaction rolled back", stats.RunID)
	} else {
		if err := tx.Commit(); err != nil {
			return stats, err
		}
	}

	p.logger.Printf("run %s: rows_read=%d rows_valid=%d skipped_low_score=%d skipped_invalid=%d",
		stats.RunID, stats.RowsRead, stats.RowsValid, stats.RowsSkippedLowScore, stats.RowsSkippedInvalid)
	p.logger.Printf("run %s: entries(created=%d updated=%d) examples(created=%d updated=%d) topics(created=%d) links(created=%d)",
		stats.RunID, stats.EntriesCreated, stats.EntriesUpdated,
		stats.ExamplesCreated, stats.ExamplesUpdated, stats.TopicsCreated, stats.LinksCreated)
	return stats, nil
}

// runFile streams one input file's rows through the pipeline. Its only
// error returns are fatal store failures; unparseable content is logged and
// skipped.
func (p *Pipeline) runFile(ctx context.Context, run *runState, path string) error {
	reader, err := OpenRows(path)
	if err != nil {
		p.logger.Printf("skipping %s: %v", path, err)
		return nil
	}
	defer reader.Close()

	source := filepath.Base(path)
	for {
		row, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			p.logger.Printf("failed to parse %s, skipping rest of file: %v", path, err)
			return nil
		}

		run.stats.RowsRead++
		if run.limitReached() {
			run.stop = true
			return nil
		}

		if err := p.processRow(ctx, run, row, source); err != nil {
			return err
		}
	}
}

func (p *Pipeline) processRow(ctx context.Context, run *runState, row card.Row, source string) error {
	c, ok := run.normalizer.Normalize(row, source)
	if !ok {
		run.stats.RowsSkippedInvalid++
		return nil
	}

	c, ok = run.sanitizer.Sanitize(c)
	if !ok {
		run.stats.RowsSkippedInvalid++
		return nil
	}

	if p.scorer.Score(c) < run.opts.MinScore {
		run.stats.RowsSkippedLowScore++
		return nil
	}

	topicNames := c.Topics
	if len(topicNames) == 0 {
		if inferred, ok := p.classifier.Infer(c); ok {
			topicNames = []string{inferred}
		}
	}

	topicIDs := []int64{run.baseTopicID}
	for _, name := range topicNames {
		id, created, err := run.tx.EnsureTopic(ctx, name)
		if err != nil {
			return err
		}
		if created {
			run.stats.TopicsCreated++
		}
		if !containsID(topicIDs, id) {
			topicIDs = append(topicIDs, id)
		}
	}

	entryID, created, updated, err := run.tx.UpsertEntry(ctx, store.Entry{
		Headword:  c.Headword,
		MeaningEN: c.MeaningEN,
		MeaningES: c.MeaningES,
	})
	if err != nil {
		return err
	}
	if created {
		run.stats.EntriesCreated++
	}
	if updated {
		run.stats.EntriesUpdated++
	}

	examples := make([]store.Example, len(c.Examples))
	for i, ex := range c.Examples {
		examples[i] = store.Example{EntryID: entryID, TextEN: ex.TextEN, Rank: ex.Rank}
	}
	examplesCreated, examplesUpdated, err := run.tx.SyncExamples(ctx, entryID, examples)
	if err != nil {
		return err
	}
	run.stats.ExamplesCreated += examplesCreated
	run.stats.ExamplesUpdated += examplesUpdated

	linked, err := run.tx.AttachTopics(ctx, entryID, topicIDs)
	if err != nil {
		return err
	}
	run.stats.LinksCreated += linked

	run.stats.RowsValid++
	run.accepted++
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
