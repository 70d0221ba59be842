package store

import (
	"context"
	"fmt"
)

// WriteRun stores a run with its occurrences and log lines in one
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the
// same run ID twice keeps the first run and reports no error.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) error {
	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, sequence, spec_hash, source, messages, result_digest, result, engine_version, ir_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Sequence,
		run.SpecHash,
		run.Source,
		run.Messages,
		run.Digest,
		resultJSON,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}

	for _, occ := range run.Result.Occurrences {
		failures, err := marshalFailures(occ.Failures)
		if err != nil {
			return fmt.Errorf("write run: occurrence %d: %w", occ.Instance, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO occurrences
			(run_id, instance, status, start_ms, start_index, failures)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			occ.Instance,
			string(occ.Status),
			occ.Start.TimeMs,
			occ.Start.MsgIndex,
			failures,
		)
		if err != nil {
			return fmt.Errorf("write run: occurrence %d: %w", occ.Instance, err)
		}
	}

	for i, line := range run.Result.Logs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_logs (run_id, line_no, line) VALUES (?, ?, ?)
		`, run.ID, i+1, line)
		if err != nil {
			return fmt.Errorf("write run: log line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and, through cascading foreign keys, its
// occurrences and log lines. Deleting an unknown ID is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
