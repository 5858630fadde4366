package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ldco/Kroma-sub000/internal/infra"
	"github.com/ldco/Kroma-sub000/internal/ingest"
	"github.com/ldco/Kroma-sub000/internal/runlog"
)

// reingest repairs and re-imports an existing run log: finalization fields
// are renormalized from the candidate arrays, planned metadata is refreshed
// from the document's own run-level blocks, and the patched document replaces
// the run's rows in the database.
func main() {
	var runlogFlag string
	flag.StringVar(&runlogFlag, "runlog", "", "path to the run log to repair and re-import")
	flag.Parse()

	path := strings.TrimSpace(runlogFlag)
	if path == "" {
		exitWithError(errors.New("-runlog is required"))
	}

	rec, err := runlog.Load(path)
	if err != nil {
		exitWithError(fmt.Errorf("load run log: %w", err))
	}

	summary := runlog.PlanSummary{
		Generation:  rec.Generation,
		Postprocess: rec.Postprocess,
		OutputGuard: rec.OutputGuard,
		Storage:     rec.Storage,
	}
	if err := runlog.PatchFile(path, summary); err != nil {
		exitWithError(fmt.Errorf("patch run log: %w", err))
	}
	rec, err = runlog.Load(path)
	if err != nil {
		exitWithError(fmt.Errorf("reload run log: %w", err))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "reingest").Logger()
	store := ingest.NewStore(ingest.PoolDB{Pool: pool}, logger)
	if err := store.IngestRunLog(ctx, path, rec); err != nil {
		exitWithError(fmt.Errorf("ingest run log: %w", err))
	}

	fmt.Printf("Run log re-ingested: %s (%d jobs)\n", path, len(rec.Jobs))
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "reingest: %v\n", err)
	os.Exit(1)
}
