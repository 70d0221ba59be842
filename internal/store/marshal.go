package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

// marshalResult converts a result tree to canonical JSON TEXT for storage.
// Logs are stored in run_logs and left out here.
func marshalResult(result ir.SequenceResult) (string, error) {
	result.Logs = nil
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// marshalFailures converts a failure list to canonical JSON TEXT.
// A nil list is stored as [].
func marshalFailures(failures []string) (string, error) {
	if failures == nil {
		failures = []string{}
	}
	data, err := ir.MarshalCanonical(failures)
	if err != nil {
		return "", fmt.Errorf("marshal failures: %w", err)
	}
	return string(data), nil
}

func unmarshalResult(data string) (ir.SequenceResult, error) {
	var result ir.SequenceResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return ir.SequenceResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	if result.Occurrences == nil {
		result.Occurrences = []ir.OccurrenceResult{}
	}
	return result, nil
}

func unmarshalFailures(data string) ([]string, error) {
	var failures []string
	if err := json.Unmarshal([]byte(data), &failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	if len(failures) == 0 {
		return nil, nil
	}
	return failures, nil
}
