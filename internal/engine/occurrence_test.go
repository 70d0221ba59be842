package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/testutil"
)

func TestOccurrence_Status(t *testing.T) {
	spec := ir.SequenceSpec{
		Name: "status",
		Steps: []ir.StepSpec{
			testutil.ApidStep("1"),
			withCard(testutil.ApidStep("2"), "*"),
			testutil.ApidStep("3"),
			testutil.ApidStep("4"),
		},
	}

	tests := []struct {
		name string
		msgs []string
		want ir.Status
	}{
		{"all mandatory matched", []string{"1", "3", "4"}, ir.StatusOK},
		{"optional repeated", []string{"1", "2", "2", "3", "4"}, ir.StatusOK},
		{"tail missing", []string{"1", "3"}, ir.StatusUndefined},
		{"optional only so far", []string{"1", "2"}, ir.StatusUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeTestChecker(t, spec)
			c.ProcessAll(testutil.Apids(tt.msgs...))

			occs := c.Occurrences()
			require.Len(t, occs, 1)
			assert.Equal(t, tt.want, occs[0].Status())
		})
	}
}

func TestOccurrence_Finished(t *testing.T) {
	spec := ir.SequenceSpec{
		Name:  "finish",
		Steps: []ir.StepSpec{testutil.ApidStep("1"), testutil.ApidStep("2"), withCard(testutil.ApidStep("3"), "?")},
	}
	c := makeTestChecker(t, spec)

	c.ProcessAll(testutil.Apids("1"))
	occ := c.Occurrences()[0]
	assert.False(t, occ.Finished())

	c.ProcessAll(testutil.Apids("1", "2")[1:])
	assert.True(t, occ.Finished(), "trailing optional step does not keep it open")

	// a late optional match starts over
	c.ProcessAll(testutil.Apids("1", "2", "3")[2:])
	require.Len(t, c.Occurrences(), 2)
	assert.Equal(t, ir.StatusOK, occ.Status())
	assert.Equal(t, ir.StatusUndefined, c.Occurrences()[1].Status())
}

func TestOccurrence_FaultsAndFailures(t *testing.T) {
	spec := testutil.ApidSequence("faults", "A")
	spec.Steps[0].Card = "{2}"
	spec.Steps = append(spec.Steps, testutil.ApidStep("B"))

	c := makeTestChecker(t, spec)
	c.ProcessAll(testutil.Apids("A", "A", "A"))

	occ := c.Occurrences()[0]
	require.Len(t, occ.Faults(), 1)
	assert.Equal(t, FaultCardinality, occ.Faults()[0].Code)
	assert.Equal(t, "1", occ.Faults()[0].StepKey)
	assert.Equal(t, int64(3), occ.Faults()[0].MsgIndex)
	assert.Equal(t, []string{"step #1 exceeded cardinality 2"}, occ.Failures())
	assert.True(t, occ.Finished())

	res := occ.Result()
	events := res.Steps[0].Events
	require.Len(t, events, 3)
	assert.Equal(t, ir.StatusError, events[2].Summary)
	assert.Equal(t, ir.StatusError, res.Start.Summary)
}

func TestOccurrence_ChildSharesContext(t *testing.T) {
	spec := ir.SequenceSpec{
		Name: "shared",
		Steps: []ir.StepSpec{
			{Filter: &ir.FilterSpec{PayloadRegex: `login (?P<_user>\w+)`}},
			seqStep("work", "+",
				ir.StepSpec{Filter: &ir.FilterSpec{PayloadRegex: `job (?P<job>\d+) for (?P<_user>\w+)`}}),
			{Filter: &ir.FilterSpec{Payload: "logout"}},
		},
	}
	msgs := testutil.NewStream().
		Log("S", "C", "login ann").
		Log("S", "C", "job 1 for ann").
		Log("S", "C", "job 2 for bob").
		Messages()

	c := makeTestChecker(t, spec)
	c.ProcessAll(msgs)

	occs := c.Occurrences()
	require.Len(t, occs, 1)
	user, _ := occs[0].Context().Get("_user")
	assert.Equal(t, "ann", user)
	job, _ := occs[0].Context().Get("job")
	assert.Equal(t, "1", job)

	res := occs[0].Result()
	assert.Equal(t, ir.StatusError, res.Status)
	// the conflicting job fails its child and the retry fails again
	require.Len(t, res.Steps[1].Occurrences, 3)
	assert.Equal(t, ir.StatusError, res.Steps[1].Occurrences[2].Status)
	assert.Empty(t, res.Steps[1].Occurrences[0].Context, "children do not repeat the shared context")
}

func TestOccurrence_MaxStepNrNeverDecreases(t *testing.T) {
	late := testutil.ApidStep("2")
	late.Card = "*"
	late.IgnoreOutOfOrder = true
	spec := ir.SequenceSpec{
		Name:  "monotonic",
		Steps: []ir.StepSpec{testutil.ApidStep("1"), late, testutil.ApidStep("3"), testutil.ApidStep("4")},
	}

	tests := []struct {
		name string
		msgs []string
	}{
		{"in order", []string{"1", "2", "3", "4"}},
		{"late step accepted", []string{"1", "3", "2", "4"}},
		{"restarts and noise", []string{"1", "3", "1", "x", "2", "3", "2", "4", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeTestChecker(t, spec)
			seen := map[*Occurrence]int{}
			for _, msg := range testutil.Apids(tt.msgs...) {
				c.Process(&msg)
				for _, occ := range c.Occurrences() {
					assert.GreaterOrEqual(t, occ.MaxStepNr(), seen[occ], "%s after msg #%d", occ.label(), msg.Index)
					seen[occ] = occ.MaxStepNr()
				}
			}
		})
	}

	t.Run("late step keeps the high mark", func(t *testing.T) {
		c := makeTestChecker(t, spec)
		c.ProcessAll(testutil.Apids("1", "3", "2"))

		occs := c.Occurrences()
		require.Len(t, occs, 1)
		assert.Equal(t, 3, occs[0].MaxStepNr())
	})
}

func TestOccurrence_ClosedResultIsStable(t *testing.T) {
	spec := ir.SequenceSpec{
		Name:  "stable",
		Steps: []ir.StepSpec{testutil.ApidStep("1"), withCard(testutil.ApidStep("2"), "?"), testutil.ApidStep("3")},
	}

	tests := []struct {
		name  string
		first []string
		later []string
	}{
		{"closed ok", []string{"1", "3"}, []string{"2", "3", "1", "2", "3"}},
		{"closed by fault", []string{"1", "1"}, []string{"2", "3", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := testutil.Apids(append(append([]string{}, tt.first...), tt.later...)...)
			c := makeTestChecker(t, spec)
			c.ProcessAll(msgs[:len(tt.first)])

			occ := c.Occurrences()[0]
			require.True(t, occ.Finished())
			before := occ.Result()

			c.ProcessAll(msgs[len(tt.first):])
			require.Greater(t, len(c.Occurrences()), 1)
			assert.Equal(t, before, occ.Result())
		})
	}
}
