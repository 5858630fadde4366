// Package ingest reconciles written run-log artifacts into the relational
// store. Ingestion is keyed by the run-log path and performed as a
// replace-on-conflict transaction: the run row is upserted, every child row
// is deleted and reinserted, so re-ingesting the same path under retries
// never duplicates jobs, candidates, quality reports or cost events.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/sqlinline"
)

// Tx is the slice of transaction behavior ingestion needs. pgx.Tx satisfies
// it; tests substitute a recording fake.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB begins ingestion transactions.
type DB interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolDB adapts a pgx pool to DB.
type PoolDB struct {
	Pool *pgxpool.Pool
}

func (p PoolDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Store persists run logs through ingestion transactions.
type Store struct {
	DB     DB
	Logger zerolog.Logger
}

func NewStore(db DB, logger zerolog.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// IngestRunLog replaces the stored state of the run at path with rec.
func (s *Store) IngestRunLog(ctx context.Context, path string, rec runlog.Record) error {
	document, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ingest: marshal run document: %w", err)
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ingest: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID string
	row := tx.QueryRow(ctx, sqlinline.QUpsertRun,
		path, rec.Project, rec.Mode, rec.Stage, rec.Time, rec.Weather,
		rec.Model, rec.Size, rec.Quality, document)
	if err := row.Scan(&runID); err != nil {
		return fmt.Errorf("ingest: upsert run: %w", err)
	}

	for _, q := range []string{
		sqlinline.QDeleteRunCostEvents,
		sqlinline.QDeleteRunQualityReports,
		sqlinline.QDeleteRunCandidates,
		sqlinline.QDeleteRunJobs,
	} {
		if _, err := tx.Exec(ctx, q, runID); err != nil {
			return fmt.Errorf("ingest: clear previous run rows: %w", err)
		}
	}

	for _, job := range rec.Jobs {
		inputImages, err := json.Marshal(job.InputImages)
		if err != nil {
			return fmt.Errorf("ingest: marshal input images for %s: %w", job.ID, err)
		}
		selected := 0
		if job.SelectedCandidate != nil {
			selected = *job.SelectedCandidate
		}
		finalOutput := ""
		if job.FinalOutput != nil {
			finalOutput = *job.FinalOutput
		}
		if _, err := tx.Exec(ctx, sqlinline.QInsertRunJob,
			runID, job.ID, job.Status, selected, finalOutput, job.FailureReason,
			job.Prompt, inputImages); err != nil {
			return fmt.Errorf("ingest: insert job %s: %w", job.ID, err)
		}

		for _, cand := range job.Candidates {
			if _, err := tx.Exec(ctx, sqlinline.QInsertRunCandidate,
				runID, job.ID, cand.Index, cand.Status, cand.FinalOutput); err != nil {
				return fmt.Errorf("ingest: insert candidate %s/%d: %w", job.ID, cand.Index, err)
			}
			if cand.GuardResult != nil {
				if _, err := tx.Exec(ctx, sqlinline.QInsertQualityReport,
					runID, job.ID, cand.Index,
					cand.GuardResult.HardFailures, cand.GuardResult.SoftWarnings,
					cand.GuardResult.AvgChromaExcess, cand.GuardResult.ArchivedTo); err != nil {
					return fmt.Errorf("ingest: insert quality report %s/%d: %w", job.ID, cand.Index, err)
				}
			}
		}
	}

	for _, ev := range DeriveCostEvents(rec) {
		if _, err := tx.Exec(ctx, sqlinline.QInsertCostEvent,
			runID, ev.JobID, ev.CandidateIndex, ev.Operation,
			ev.Model, ev.Size, ev.Quality, ev.AmountUSD); err != nil {
			return fmt.Errorf("ingest: insert cost event %s/%d: %w", ev.JobID, ev.CandidateIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ingest: commit: %w", err)
	}
	s.Logger.Info().
		Str("run_log", path).
		Str("project", rec.Project).
		Int("jobs", len(rec.Jobs)).
		Msg("run log ingested")
	return nil
}
