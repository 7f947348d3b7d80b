package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/engine"
)

// WriteRun stores the results of one suite execution under id.
// The run and all of its scenarios and steps are written in one
// transaction; a run ID that already exists is an error.
func (s *Store) WriteRun(ctx context.Context, id string, startedAt time.Time, results []engine.ScenarioResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	counts := make(map[engine.Status]int, 3)
	for _, r := range results {
		counts[r.Status()]++
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, passed, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id,
		startedAt.UnixNano(),
		string(runStatus(counts)),
		counts[engine.StatusPassed],
		counts[engine.StatusSkipped],
		counts[engine.StatusFailed],
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for ord, r := range results {
		var teardown string
		if r.TeardownErr != nil {
			teardown = r.TeardownErr.Error()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO scenarios (run_id, ord, scenario_run_id, name, feature, status, unexecuted, teardown_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, ord, r.RunID, r.Name, r.Feature, string(r.Status()), len(r.Unexecuted), teardown)
		if err != nil {
			return fmt.Errorf("write run: scenario %q: %w", r.Name, err)
		}
		scenarioID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("write run: scenario %q: %w", r.Name, err)
		}

		for _, o := range r.Outcomes {
			if err := writeOutcome(ctx, tx, scenarioID, o); err != nil {
				return fmt.Errorf("write run: scenario %q step %d: %w", r.Name, o.Record.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeOutcome(ctx context.Context, tx *sql.Tx, scenarioID int64, o engine.Outcome) error {
	var kind, msg string
	if o.Err != nil {
		kind = string(o.Err.Kind)
		msg = o.Err.Error()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO step_outcomes
		(scenario_id, idx, seq, keyword, resolved, text, pattern, status, reason, error_kind, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		scenarioID,
		o.Record.Index,
		o.Seq,
		o.Record.Keyword.String(),
		o.Keyword.String(),
		o.Record.Text,
		o.Pattern,
		string(o.Status),
		o.Reason,
		kind,
		msg,
		o.Duration.Nanoseconds(),
	)
	return err
}

// runStatus classifies a run the way ScenarioResult.Status classifies a
// scenario: failed over skipped over passed.
func runStatus(counts map[engine.Status]int) engine.Status {
	switch {
	case counts[engine.StatusFailed] > 0:
		return engine.StatusFailed
	case counts[engine.StatusSkipped] > 0:
		return engine.StatusSkipped
	default:
		return engine.StatusPassed
	}
}

// Prune deletes every run except the keep most recent, along with their
// scenarios and step outcomes. It returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must be non-negative, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs
			ORDER BY started_at DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return int(n), nil
}
