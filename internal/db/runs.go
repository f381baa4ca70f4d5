package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// StartRun inserts a run in the running state.
func (db *DB) StartRun(ctx context.Context, run *types.RunRecord) error {
	id, err := parseRunID(run.ID)
	if err != nil {
		return err
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO optimization_runs (id, status, stage, document_source, job_source, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(run.Status), run.Stage, run.DocumentSource, run.JobSource, started,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// RecordStage appends a stage transition and moves the run's current stage.
func (db *DB) RecordStage(ctx context.Context, event types.StageEvent) error {
	id, err := parseRunID(event.RunID)
	if err != nil {
		return err
	}
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO run_stages (run_id, stage, status, message, retries, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, event.Stage, event.Status, event.Message, event.Retries, at,
		); err != nil {
			return fmt.Errorf("failed to record stage %s: %w", event.Stage, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE optimization_runs SET stage = $1 WHERE id = $2`,
			event.Stage, id,
		); err != nil {
			return fmt.Errorf("failed to update run stage: %w", err)
		}
		return nil
	})
}

// FinishRun stores the final status, document, report and patch outcomes.
func (db *DB) FinishRun(ctx context.Context, run *types.RunRecord) error {
	id, err := parseRunID(run.ID)
	if err != nil {
		return err
	}

	errorsJSON, err := marshalNullable(run.Errors)
	if err != nil {
		return err
	}
	docJSON, err := marshalNullable(run.Document)
	if err != nil {
		return err
	}
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE optimization_runs
			 SET status = $1, stage = $2, coverage = $3, errors = $4, document = $5, report = $6, finished_at = $7
			 WHERE id = $8`,
			string(run.Status), run.Stage, run.Coverage, errorsJSON, docJSON, run.Report, finished, id,
		); err != nil {
			return fmt.Errorf("failed to complete run: %w", err)
		}

		batch := &pgx.Batch{}
		for i, o := range run.Outcomes {
			data, err := json.Marshal(o)
			if err != nil {
				return fmt.Errorf("failed to marshal outcome %d: %w", i, err)
			}
			batch.Queue(
				`INSERT INTO patch_outcomes (run_id, position, proposal_id, status, reason, mode, outcome, applied_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (run_id, position) DO UPDATE
				 SET proposal_id = $3, status = $4, reason = $5, mode = $6, outcome = $7, applied_at = $8`,
				id, i, o.Proposal.ID, string(o.Status), o.Reason, string(o.Mode), data, o.Timestamp,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save patch outcomes: %w", err)
		}
		return nil
	})
}

// GetRun loads a run with its outcomes. It returns nil, nil when the run
// does not exist.
func (db *DB) GetRun(ctx context.Context, runID string) (*types.RunRecord, error) {
	id, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	var (
		run        types.RunRecord
		status     string
		errorsJSON []byte
		docJSON    []byte
	)
	err = db.pool.QueryRow(ctx,
		`SELECT status, stage, document_source, job_source, coverage, errors, document, report, started_at, finished_at
		 FROM optimization_runs WHERE id = $1`,
		id,
	).Scan(&status, &run.Stage, &run.DocumentSource, &run.JobSource, &run.Coverage,
		&errorsJSON, &docJSON, &run.Report, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.ID = id.String()
	run.Status = types.RunStatus(status)

	if err := unmarshalNullable(errorsJSON, &run.Errors); err != nil {
		return nil, err
	}
	if len(docJSON) > 0 {
		run.Document = &types.Document{}
		if err := json.Unmarshal(docJSON, run.Document); err != nil {
			return nil, fmt.Errorf("failed to decode stored document: %w", err)
		}
	}

	run.Outcomes, err = db.listOutcomes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListStages returns the stage transitions of a run in order.
func (db *DB) ListStages(ctx context.Context, runID string) ([]types.StageEvent, error) {
	id, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx,
		`SELECT stage, status, message, retries, created_at
		 FROM run_stages WHERE run_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var events []types.StageEvent
	for rows.Next() {
		e := types.StageEvent{RunID: id.String()}
		if err := rows.Scan(&e.Stage, &e.Status, &e.Message, &e.Retries, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListRuns returns the most recent runs without their documents or outcomes.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, status, stage, document_source, job_source, coverage, started_at, finished_at
		 FROM optimization_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			run    types.RunRecord
			id     uuid.UUID
			status string
		)
		if err := rows.Scan(&id, &status, &run.Stage, &run.DocumentSource, &run.JobSource,
			&run.Coverage, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.ID = id.String()
		run.Status = types.RunStatus(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (db *DB) listOutcomes(ctx context.Context, runID uuid.UUID) ([]types.PatchOutcome, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT outcome FROM patch_outcomes WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.PatchOutcome
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		var o types.PatchOutcome
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("failed to decode outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// marshalNullable encodes v as JSON, mapping nil and empty slices to SQL NULL.
func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case *types.Document:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return data, nil
}

func unmarshalNullable(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}
