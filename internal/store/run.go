package store

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

// RunRecord is one stored checker run.
type RunRecord struct {
	ID            string
	Seq           int64 // assigned by WriteRun
	Sequence      string
	SpecHash      string
	Source        string
	Messages      int64
	Digest        string
	EngineVersion string
	IRVersion     string
	Result        ir.SequenceResult
}

// OccurrenceRecord is the per-occurrence row of a stored run.
type OccurrenceRecord struct {
	RunID      string
	Instance   int
	Status     ir.Status
	StartMs    int64
	StartIndex int64
	Failures   []string
}

// NewRunRecord builds the record for result. source labels where the
// messages came from, typically a file path.
func NewRunRecord(id, source string, messages int64, result *ir.SequenceResult) (RunRecord, error) {
	digest, err := ir.ResultDigest(*result)
	if err != nil {
		return RunRecord{}, fmt.Errorf("new run record: %w", err)
	}
	return RunRecord{
		ID:            id,
		Sequence:      result.Sequence,
		SpecHash:      result.SpecHash,
		Source:        source,
		Messages:      messages,
		Digest:        digest,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Result:        *result,
	}, nil
}

// Counts returns the number of occurrences per status.
func (r *RunRecord) Counts() map[ir.Status]int {
	return r.Result.Counts()
}
