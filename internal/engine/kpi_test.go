package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/testutil"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ts   int64
		want string
	}{
		{12345, "1234.5ms"},
		{0, "0.0ms"},
		{70, "7.0ms"},
		{5, "0.5ms"},
		{-5, "-0.5ms"},
		{-9, "-0.9ms"},
		{-10, "-1.0ms"},
		{-15, "-1.5ms"},
		{-12345, "-1234.5ms"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimestamp(tt.ts), "ts=%d", tt.ts)
	}
}

func TestComputeKPIs_MissingReference(t *testing.T) {
	spec := ir.SequenceSpec{
		Name: "kpi",
		Steps: []ir.StepSpec{
			testutil.ApidStep("A"),
			withCard(testutil.ApidStep("B"), "?"),
			testutil.ApidStep("C"),
		},
		KPIs: []ir.KPISpec{
			{Name: "a_to_b", Start: 1, End: 2},
			{Name: "a_to_c", Start: 1, End: 3},
			{Name: "start_at", Start: 1},
		},
	}
	msgs := testutil.NewStream().Every(40).Log("A", "X", "a").Log("C", "X", "c").Messages()

	c := makeTestChecker(t, spec)
	c.ProcessAll(msgs)
	occs := c.Occurrences()
	require.Len(t, occs, 1)

	assert.Equal(t, []ir.KPIValue{
		{Name: "a_to_c", Value: "40ms"},
		{Name: "start_at", Value: "1000.0ms"},
	}, computeKPIs(spec.KPIs, occs[0]))
}

func TestComputeKPIs_CompositeStep(t *testing.T) {
	spec := ir.SequenceSpec{
		Name: "kpi",
		Steps: []ir.StepSpec{
			testutil.ApidStep("A"),
			seqStep("inner", "", testutil.ApidStep("B"), testutil.ApidStep("C")),
		},
		KPIs: []ir.KPISpec{{Name: "a_to_inner", Start: 1, End: 2}},
	}
	msgs := testutil.NewStream().At(100).Log("A", "X", "a").At(350).Log("B", "X", "b").Log("C", "X", "c").Messages()

	c := makeTestChecker(t, spec)
	c.ProcessAll(msgs)

	res := c.Result()
	require.Len(t, res.Occurrences, 1)
	v, ok := res.Occurrences[0].KPIValue("a_to_inner")
	require.True(t, ok)
	assert.Equal(t, "250ms", v)
}
