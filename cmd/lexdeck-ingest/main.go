// lexdeck-ingest is the periodic batch job that merges vocabulary records
// from JSONL/CSV files (local or downloaded) into the flashcard store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cognicore/lexdeck/pkg/lexdeck/config"
	"github.com/cognicore/lexdeck/pkg/lexdeck/ingest"
	"github.com/cognicore/lexdeck/pkg/lexdeck/internalerr"
	"github.com/cognicore/lexdeck/pkg/lexdeck/store/sqlite"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var inputs, downloads stringList
	flag.Var(&inputs, "input", "Input file or folder (.jsonl or .csv). Can be repeated.")
	flag.Var(&downloads, "download", "URL to download before ingest. Can be repeated.")
	var (
		downloadDir = flag.String("download-dir", "data/inbox", "Directory where downloaded files are staged")
		dbPath      = flag.String("db", os.Getenv("LEXDECK_DB"), "SQLite database path (defaults to LEXDECK_DB)")
		vocabPath   = flag.String("vocab", "", "Optional vocab YAML overlaying the built-in tables")
		minScore    = flag.Int("min-score", 45, "Minimum quality score to ingest (0-100)")
		maxExamples = flag.Int("max-examples", 2, "Maximum examples kept per entry")
		limit       = flag.Int("limit", 0, "Max accepted rows per run, 0 means no limit")
		dryRun      = flag.Bool("dry-run", false, "Execute the ingest but roll back the transaction at the end")
		quiet       = flag.Bool("quiet", false, "Suppress progress logging")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *quiet {
		logger = log.New(io.Discard, "", 0)
	}

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "-db required (or set LEXDECK_DB)")
		return exitUsage
	}
	if *minScore < 0 || *minScore > 100 {
		fmt.Fprintln(os.Stderr, "-min-score must be between 0 and 100")
		return exitUsage
	}
	if *maxExamples < 1 {
		fmt.Fprintln(os.Stderr, "-max-examples must be >= 1")
		return exitUsage
	}

	vocab := config.Default()
	if *vocabPath != "" {
		var err error
		vocab, err = config.Load(*vocabPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid vocab config: %v\n", err)
			return exitUsage
		}
	}

	ctx := context.Background()

	staged, err := ingest.Download(ctx, downloads, *downloadDir, logger)
	if err != nil {
		logger.Printf("download failed: %v", err)
		return exitFail
	}

	files := ingest.CollectInputs(append(inputs, staged...), logger)
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no input files found; use -input <file|folder> or -download <url>")
		return exitUsage
	}

	st, err := sqlite.Open(ctx, *dbPath, vocab)
	if err != nil {
		logger.Printf("open store: %v", err)
		return exitFail
	}
	defer st.Close()

	pipeline, err := ingest.New(st, vocab, logger)
	if err != nil {
		logger.Printf("build pipeline: %v", err)
		return exitFail
	}

	stats, err := pipeline.Run(ctx, ingest.Options{
		Inputs:      files,
		MinScore:    *minScore,
		MaxExamples: *maxExamples,
		Limit:       *limit,
		DryRun:      *dryRun,
	})
	if err != nil {
		logger.Printf("run %s failed: %v", stats.RunID, err)
		if errors.Is(err, internalerr.ErrNoInput) || errors.Is(err, internalerr.ErrInvalidConfig) {
			return exitUsage
		}
		return exitFail
	}

	fmt.Printf("run %s: read=%d valid=%d skipped_invalid=%d skipped_low_score=%d\n",
		stats.RunID, stats.RowsRead, stats.RowsValid, stats.RowsSkippedInvalid, stats.RowsSkippedLowScore)
	return exitOK
}
