package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListRuns returns stored runs, newest first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if no runs are stored.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, status, passed, skipped, failed
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run without its scenarios, or
// ErrRunNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}

// ReadRun returns a run with all of its scenarios and step outcomes.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, status, passed, skipped, failed
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	scenarios, ids, err := s.readScenarios(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		steps, err := s.readSteps(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		scenarios[i].Steps = steps
	}
	run.Scenarios = scenarios
	return &run, nil
}

func (s *Store) readScenarios(ctx context.Context, runID string) ([]Scenario, []int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario_run_id, name, feature, status, unexecuted, teardown_error
		FROM scenarios
		WHERE run_id = ?
		ORDER BY ord ASC
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	var (
		scenarios []Scenario
		ids       []int64
	)
	for rows.Next() {
		var (
			id int64
			sc Scenario
		)
		if err := rows.Scan(&id, &sc.RunID, &sc.Name, &sc.Feature, &sc.Status, &sc.Unexecuted, &sc.TeardownError); err != nil {
			return nil, nil, fmt.Errorf("scan scenario: %w", err)
		}
		scenarios = append(scenarios, sc)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scenarios: %w", err)
	}
	return scenarios, ids, nil
}

func (s *Store) readSteps(ctx context.Context, scenarioID int64) ([]StepOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, seq, keyword, resolved, text, pattern, status, reason, error_kind, error, duration_ns
		FROM step_outcomes
		WHERE scenario_id = ?
		ORDER BY idx ASC
	`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("query step outcomes: %w", err)
	}
	defer rows.Close()

	steps := []StepOutcome{}
	for rows.Next() {
		var (
			st StepOutcome
			ns int64
		)
		if err := rows.Scan(&st.Index, &st.Seq, &st.Keyword, &st.Resolved, &st.Text, &st.Pattern,
			&st.Status, &st.Reason, &st.ErrorKind, &st.Error, &ns); err != nil {
			return nil, fmt.Errorf("scan step outcome: %w", err)
		}
		st.Duration = time.Duration(ns)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step outcomes: %w", err)
	}
	return steps, nil
}

// ReadSkipped returns every skipped step of a run, or of all runs when
// runID is empty. Results are ordered by run (oldest first), then scenario
// order, then step index.
//
// Returns an empty slice (not nil) if nothing was skipped.
func (s *Store) ReadSkipped(ctx context.Context, runID string) ([]SkippedStep, error) {
	query := `
		SELECT r.id, r.started_at, sc.name, so.idx, so.keyword, so.text, so.pattern, so.reason
		FROM step_outcomes so
		JOIN scenarios sc ON so.scenario_id = sc.id
		JOIN runs r ON sc.run_id = r.id
		WHERE so.status = 'skipped'
	`
	var args []any
	if runID != "" {
		query += " AND r.id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC, sc.ord ASC, so.idx ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skipped steps: %w", err)
	}
	defer rows.Close()

	skipped := []SkippedStep{}
	for rows.Next() {
		var (
			st      SkippedStep
			started int64
		)
		if err := rows.Scan(&st.RunID, &started, &st.Scenario, &st.Index, &st.Keyword, &st.Text, &st.Pattern, &st.Reason); err != nil {
			return nil, fmt.Errorf("scan skipped step: %w", err)
		}
		st.StartedAt = time.Unix(0, started).UTC()
		skipped = append(skipped, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skipped steps: %w", err)
	}
	return skipped, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		started int64
	)
	if err := row.Scan(&run.ID, &started, &run.Status, &run.Passed, &run.Skipped, &run.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	return run, nil
}
