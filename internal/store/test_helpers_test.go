package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/seqcheck/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult creates a result with one ok and one failed occurrence.
func createTestResult(sequence string) *ir.SequenceResult {
	return &ir.SequenceResult{
		Sequence: sequence,
		SpecHash: "test-hash",
		Occurrences: []ir.OccurrenceResult{
			{
				Instance: 1,
				Start:    ir.Event{Type: ir.EventSequence, Title: sequence, TimeMs: 1000, MsgIndex: 1, Summary: ir.StatusOK},
				Status:   ir.StatusOK,
				Steps: []ir.StepResult{{
					Key:    "1",
					Events: []ir.Event{{Type: ir.EventStep, Title: "APID:A", TimeMs: 1000, MsgIndex: 1, Summary: ir.StatusOK}},
				}},
			},
			{
				Instance: 2,
				Start:    ir.Event{Type: ir.EventSequence, Title: sequence, TimeMs: 1200, MsgIndex: 3, Summary: ir.StatusError},
				Status:   ir.StatusError,
				Failures: []string{"crash"},
				Steps:    []ir.StepResult{{Key: "1"}},
			},
		},
		Logs: []string{sequence + " #1 started", sequence + " #2 started"},
	}
}

// createTestRun creates a run record for createTestResult.
func createTestRun(t *testing.T, id, sequence string) RunRecord {
	t.Helper()
	run, err := NewRunRecord(id, "test.log", 3, createTestResult(sequence))
	if err != nil {
		t.Fatalf("NewRunRecord() failed: %v", err)
	}
	return run
}
