package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

const runColumns = `id, seq, sequence, spec_hash, source, messages, result_digest, result, engine_version, ir_version`

// ReadRuns returns stored runs, all of them when sequence is empty.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
// Log lines are not loaded; use ReadLogs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ReadRuns(ctx context.Context, sequence string) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if sequence != "" {
		query += ` WHERE sequence = ?`
		args = append(args, sequence)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
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

// ReadRun retrieves a single run by ID, including its log lines.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return RunRecord{}, err
	}

	logs, err := s.ReadLogs(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	if len(logs) > 0 {
		run.Result.Logs = logs
	}
	return run, nil
}

// ReadOccurrences returns the occurrence rows of a run ordered by instance.
func (s *Store) ReadOccurrences(ctx context.Context, runID string) ([]OccurrenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, instance, status, start_ms, start_index, failures
		FROM occurrences
		WHERE run_id = ?
		ORDER BY instance ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()

	occs := []OccurrenceRecord{}
	for rows.Next() {
		var (
			occ      OccurrenceRecord
			status   string
			failures string
		)
		if err := rows.Scan(&occ.RunID, &occ.Instance, &status, &occ.StartMs, &occ.StartIndex, &failures); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occ.Status = ir.Status(status)
		if occ.Failures, err = unmarshalFailures(failures); err != nil {
			return nil, err
		}
		occs = append(occs, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return occs, nil
}

// ReadLogs returns the diagnostic log lines of a run in order.
func (s *Store) ReadLogs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line FROM run_logs WHERE run_id = ? ORDER BY line_no ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run logs: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run logs: %w", err)
	}
	return lines, nil
}

// CountByStatus returns the number of stored occurrences per status,
// restricted to one sequence when sequence is not empty.
func (s *Store) CountByStatus(ctx context.Context, sequence string) (map[ir.Status]int, error) {
	query := `
		SELECT o.status, COUNT(*)
		FROM occurrences o
		JOIN runs r ON o.run_id = r.id`
	var args []any
	if sequence != "" {
		query += ` WHERE r.sequence = ?`
		args = append(args, sequence)
	}
	query += ` GROUP BY o.status ORDER BY o.status COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[ir.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[ir.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		run        RunRecord
		resultJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Sequence,
		&run.SpecHash,
		&run.Source,
		&run.Messages,
		&run.Digest,
		&resultJSON,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if run.Result, err = unmarshalResult(resultJSON); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}
