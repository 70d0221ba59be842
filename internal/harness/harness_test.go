package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/testutil"
)

func createTestScenario(name string, assertions ...Assertion) *Scenario {
	seq := testutil.ApidSequence("order", "A", "B")
	return &Scenario{
		Name:        name,
		Description: "test scenario",
		Sequence:    &seq,
		Messages: []ir.Message{
			{Apid: "A", Ctid: "CTX", Payload: "a"},
			{Apid: "B", Ctid: "CTX", Payload: "b"},
		},
		Assertions: assertions,
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := createTestScenario("minimal",
		Assertion{Type: AssertStatusSequence, Statuses: []string{"ok"}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "run-minimal", result.RunID)
	require.NotNil(t, result.Sequence)
	assert.Equal(t, "order", result.Sequence.Sequence)
	assert.Equal(t, []ir.Status{ir.StatusOK}, result.Statuses())
}

func TestRun_StampsMessages(t *testing.T) {
	scenario := createTestScenario("stamped",
		Assertion{Type: AssertOccurrenceCount, Count: 1},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	occ, ok := result.Occurrence(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), occ.Start.MsgIndex)
	assert.Equal(t, int64(1000), occ.Start.TimeMs)
	assert.Equal(t, int64(10000), occ.Start.TimeStamp)
}

func TestRun_CustomRunID(t *testing.T) {
	scenario := createTestScenario("custom",
		Assertion{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"sequence": "order"}},
	)
	scenario.RunID = "fixed-run"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fixed-run", result.RunID)
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario := createTestScenario("failing",
		Assertion{Type: AssertStatusSequence, Statuses: []string{"error"}},
		Assertion{Type: AssertOccurrenceCount, Count: 1},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "status_sequence")
}

func TestRun_ExpectedBuildError(t *testing.T) {
	scenario := createTestScenario("rejected")
	scenario.Sequence.Steps[0].CanStartNew = testutil.Bool(false)
	scenario.ExpectBuildError = "E107"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"E107"}, result.BuildErrors)
	assert.Nil(t, result.Sequence)
	assert.Empty(t, result.RunID)
}

func TestRun_WrongBuildError(t *testing.T) {
	scenario := createTestScenario("wrong_code")
	scenario.Sequence.Steps[0].CanStartNew = testutil.Bool(false)
	scenario.ExpectBuildError = "E101"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected build error E101, got [E107]")
}

func TestRun_UnexpectedBuildError(t *testing.T) {
	scenario := createTestScenario("unexpected",
		Assertion{Type: AssertOccurrenceCount, Count: 0},
	)
	scenario.Sequence.Steps[0].CanStartNew = testutil.Bool(false)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sequence rejected")
}

func TestRun_BuildErrorNotRaised(t *testing.T) {
	scenario := createTestScenario("accepted")
	scenario.ExpectBuildError = "E107"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `sequence "order" was accepted`)
}

func TestRun_MissingSpecFile(t *testing.T) {
	scenario := createTestScenario("missing")
	scenario.Sequence = nil
	scenario.Spec = "testdata/specs/does-not-exist.cue"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve sequence")
}

func TestRun_Isolation(t *testing.T) {
	// Each run gets a fresh store, so the same run id can be reused.
	for i := 0; i < 2; i++ {
		scenario := createTestScenario("isolated",
			Assertion{Type: AssertFinalState, Table: "occurrences",
				Where: map[string]interface{}{"instance": 1}, Expect: map[string]interface{}{"status": "ok"}},
		)
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d errors: %v", i, result.Errors)
	}
}
