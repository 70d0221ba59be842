package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seqcheck/internal/ir"
)

// Snapshot captures the outcome of a scenario execution.
// It is serialized with canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. Only the stable parts of the result are kept: status,
// start message, failures, context and KPIs per occurrence.
func (s *Snapshot) toCanonicalMap() map[string]any {
	out := map[string]any{
		"scenario_name": s.ScenarioName,
	}

	if len(s.Result.BuildErrors) > 0 {
		codes := make([]any, len(s.Result.BuildErrors))
		for i, c := range s.Result.BuildErrors {
			codes[i] = c
		}
		out["build_errors"] = codes
	}

	if s.Result.Sequence == nil {
		return out
	}
	out["sequence"] = s.Result.Sequence.Sequence

	occList := make([]any, len(s.Result.Sequence.Occurrences))
	for i, occ := range s.Result.Sequence.Occurrences {
		occMap := map[string]any{
			"instance":    occ.Instance,
			"status":      string(occ.Status),
			"start_index": occ.Start.MsgIndex,
		}
		if len(occ.Failures) > 0 {
			failures := make([]any, len(occ.Failures))
			for j, f := range occ.Failures {
				failures[j] = f
			}
			occMap["failures"] = failures
		}
		if len(occ.Context) > 0 {
			ctx := make(map[string]any, len(occ.Context))
			for _, p := range occ.Context {
				ctx[p.Key] = p.Value
			}
			occMap["context"] = ctx
		}
		if len(occ.KPIs) > 0 {
			kpis := make(map[string]any, len(occ.KPIs))
			for _, k := range occ.KPIs {
				kpis[k.Name] = k.Value
			}
			occMap["kpis"] = kpis
		}
		occList[i] = occMap
	}
	out["occurrences"] = occList
	return out
}

// MarshalSnapshot returns the canonical JSON snapshot of a result, which is
// the content of its golden file.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Result:       result,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
