package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
)

func boolPtr(b bool) *bool { return &b }

func leaf(apid string) ir.StepSpec {
	return ir.StepSpec{Filter: &ir.FilterSpec{Apid: apid}}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name: "boot",
		Steps: []ir.StepSpec{
			leaf("1"),
			{Card: "?", Filter: &ir.FilterSpec{Apid: "3"}},
			{Sequence: &ir.SequenceSpec{Name: "inner", Steps: []ir.StepSpec{leaf("4"), leaf("5")}}, Card: "+"},
			{Alt: []ir.StepSpec{leaf("6"), leaf("7")}},
			{Par: []ir.StepSpec{leaf("8"), {Card: "*", Filter: &ir.FilterSpec{Apid: "9"}}}},
			{IgnoreOutOfOrder: true, Filter: &ir.FilterSpec{Apid: "2"}},
		},
		Failures: ir.Failures{{Name: "crash", Filter: ir.FilterSpec{Payload: "segfault"}}},
		KPIs:     []ir.KPISpec{{Name: "startup", Start: 1, End: 6}},
	}

	errs := Validate(spec)
	assert.Empty(t, errs, "valid spec should have no errors")
}

func TestValidateMissingNameAndSteps(t *testing.T) {
	errs := Validate(&ir.SequenceSpec{})
	assert.Equal(t, []string{ErrSequenceNameMissing, ErrSequenceNoSteps}, codes(errs))
}

func TestValidateStepKind(t *testing.T) {
	tests := []struct {
		name string
		step ir.StepSpec
		code string
	}{
		{"none", ir.StepSpec{Name: "empty"}, ErrStepKindMissing},
		{"two", ir.StepSpec{Filter: &ir.FilterSpec{}, Sequence: &ir.SequenceSpec{}}, ErrStepKindAmbiguous},
		{"empty alt", ir.StepSpec{Alt: []ir.StepSpec{}}, ErrAltEmpty},
		{"empty par", ir.StepSpec{Par: []ir.StepSpec{}}, ErrParEmpty},
		{"bad card", ir.StepSpec{Card: "{x}", Filter: &ir.FilterSpec{}}, ErrInvalidCardinality},
		{"bad regex", ir.StepSpec{Filter: &ir.FilterSpec{PayloadRegex: "("}}, ErrInvalidFilter},
		{"alt member without kind", ir.StepSpec{Alt: []ir.StepSpec{leaf("1"), {}}}, ErrStepKindMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &ir.SequenceSpec{Name: "s", Steps: []ir.StepSpec{leaf("0"), tt.step}}
			errs := Validate(spec)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.code)
		})
	}
}

func TestValidateFirstStepCannotStart(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name:  "s",
		Steps: []ir.StepSpec{{CanStartNew: boolPtr(false), Filter: &ir.FilterSpec{Apid: "1"}}, leaf("2")},
	}

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrFirstStepNotStarting, errs[0].Code)
	assert.Equal(t, "steps[0].canCreateNew", errs[0].Field)
}

func TestValidateFirstStepOfSubSequence(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name: "s",
		Steps: []ir.StepSpec{
			leaf("1"),
			{Sequence: &ir.SequenceSpec{
				Name:  "inner",
				Steps: []ir.StepSpec{{CanStartNew: boolPtr(false), Filter: &ir.FilterSpec{}}},
			}},
		},
	}

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[1].sequence.steps[0].canCreateNew", errs[0].Field)
}

func TestValidateIgnoreOutOfOrderAfterOptional(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name: "s",
		Steps: []ir.StepSpec{
			leaf("1"),
			{Card: "*", Filter: &ir.FilterSpec{Apid: "2"}},
			{IgnoreOutOfOrder: true, Filter: &ir.FilterSpec{Apid: "3"}},
		},
	}

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMisplacedIgnoreOrder, errs[0].Code)
	assert.Equal(t, "steps[2].ignoreOutOfOrder", errs[0].Field)
}

func TestValidateIgnoreOutOfOrderSameLevelOnly(t *testing.T) {
	// the optional step sits inside the sub-sequence, not next to step 3
	spec := &ir.SequenceSpec{
		Name: "s",
		Steps: []ir.StepSpec{
			leaf("1"),
			{Sequence: &ir.SequenceSpec{
				Name:  "inner",
				Steps: []ir.StepSpec{leaf("2"), {Card: "?", Filter: &ir.FilterSpec{Apid: "x"}}},
			}},
			{IgnoreOutOfOrder: true, Filter: &ir.FilterSpec{Apid: "3"}},
		},
	}

	assert.Empty(t, Validate(spec))
}

func TestValidateNoMandatoryStep(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name: "s",
		Steps: []ir.StepSpec{
			{Card: "?", Filter: &ir.FilterSpec{Apid: "1"}},
			{Card: "*", Filter: &ir.FilterSpec{Apid: "2"}},
		},
	}

	errs := Validate(spec)
	assert.Equal(t, []string{ErrNoMandatoryStep}, codes(errs))
}

func TestValidateFailures(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name:  "s",
		Steps: []ir.StepSpec{leaf("1")},
		Failures: ir.Failures{
			{Name: "", Filter: ir.FilterSpec{Payload: "x"}},
			{Name: "bad", Filter: ir.FilterSpec{PayloadRegex: "[a-"}},
			{Name: "crash", Filter: ir.FilterSpec{Payload: "segfault"}},
			{Name: "crash", Filter: ir.FilterSpec{Payload: "panic"}},
		},
	}

	errs := Validate(spec)
	assert.Equal(t, []string{ErrInvalidFailure, ErrInvalidFailure, ErrInvalidFailure}, codes(errs))
	assert.Equal(t, "failures.bad", errs[1].Field)
	assert.Equal(t, "failures.crash", errs[2].Field)
	assert.Contains(t, errs[2].Message, "duplicate failure")
}

func TestValidateKPIs(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name:  "s",
		Steps: []ir.StepSpec{leaf("1"), leaf("2")},
		KPIs: []ir.KPISpec{
			{Name: "ok", Start: 1, End: 2},
			{Name: "none"},
			{Name: "range", End: 3},
			{Name: "ok", End: 1},
		},
	}

	errs := Validate(spec)
	require.Len(t, errs, 3)
	assert.Equal(t, "kpis[1]", errs[0].Field)
	assert.Equal(t, "kpis[2].end", errs[1].Field)
	assert.Equal(t, "kpis[3].name", errs[2].Field)
}

func TestValidateKPIsOnlyTopLevel(t *testing.T) {
	spec := &ir.SequenceSpec{
		Name: "s",
		Steps: []ir.StepSpec{{Sequence: &ir.SequenceSpec{
			Name:  "inner",
			Steps: []ir.StepSpec{leaf("1")},
			KPIs:  []ir.KPISpec{{Name: "x", Start: 1}},
		}}},
	}

	errs := Validate(spec)
	assert.Equal(t, []string{ErrInvalidKPI}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "steps[0]", Message: "bad", Code: ErrStepKindMissing}
	assert.Equal(t, "[E103] steps[0]: bad", err.Error())
}
