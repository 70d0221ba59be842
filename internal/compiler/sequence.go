package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/seqcheck/internal/ir"
)

var stepFields = map[string]bool{
	"name":             true,
	"card":             true,
	"canCreateNew":     true,
	"canStartNew":      true,
	"ignoreOutOfOrder": true,
	"filter":           true,
	"sequence":         true,
	"alt":              true,
	"par":              true,
}

var sequenceFields = map[string]bool{
	"name":     true,
	"steps":    true,
	"failures": true,
	"kpis":     true,
}

var filterFields = map[string]bool{
	"name":              true,
	"enabled":           true,
	"not":               true,
	"mstp":              true,
	"ecu":               true,
	"apid":              true,
	"ctid":              true,
	"logLevelMin":       true,
	"logLevelMax":       true,
	"verbose":           true,
	"payload":           true,
	"payloadRegex":      true,
	"ignoreCasePayload": true,
	"lifecycles":        true,
}

// CompileSequence parses a CUE value into a SequenceSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the sequence struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`{name: "boot", steps: [{filter: {apid: "SYS"}}]}`)
//	spec, err := CompileSequence(v)
//
// CompileSequence checks structure and types only; construction rules are
// enforced by Validate.
func CompileSequence(v cue.Value) (*ir.SequenceSpec, error) {
	return compileSequence(v, "")
}

func compileSequence(v cue.Value, path string) (*ir.SequenceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, path, sequenceFields); err != nil {
		return nil, err
	}

	spec := &ir.SequenceSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, &CompileError{
			Field:   path + "steps",
			Message: "steps are required",
			Pos:     v.Pos(),
		}
	}
	steps, err := compileSteps(stepsVal, path+"steps")
	if err != nil {
		return nil, err
	}
	spec.Steps = steps

	failuresVal := v.LookupPath(cue.ParsePath("failures"))
	if failuresVal.Exists() {
		failures, err := compileFailures(failuresVal, path+"failures")
		if err != nil {
			return nil, err
		}
		spec.Failures = failures
	}

	kpisVal := v.LookupPath(cue.ParsePath("kpis"))
	if kpisVal.Exists() {
		var kpis []ir.KPISpec
		if err := kpisVal.Decode(&kpis); err != nil {
			return nil, formatCUEError(err)
		}
		spec.KPIs = kpis
	}

	return spec, nil
}

func compileSteps(v cue.Value, path string) ([]ir.StepSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   path,
			Message: "must be a list of steps",
			Pos:     v.Pos(),
		}
	}

	steps := []ir.StepSpec{}
	for i := 0; iter.Next(); i++ {
		step, err := compileStep(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}
	return steps, nil
}

func compileStep(v cue.Value, path string) (*ir.StepSpec, error) {
	if err := checkFields(v, path+".", stepFields); err != nil {
		return nil, err
	}

	step := &ir.StepSpec{}

	for _, field := range []struct {
		name string
		dst  *string
	}{{"name", &step.Name}, {"card", &step.Card}} {
		fv := v.LookupPath(cue.ParsePath(field.name))
		if !fv.Exists() {
			continue
		}
		s, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*field.dst = s
	}

	// canStartNew is accepted as an alias of canCreateNew
	for _, name := range []string{"canCreateNew", "canStartNew"} {
		fv := v.LookupPath(cue.ParsePath(name))
		if !fv.Exists() {
			continue
		}
		b, err := fv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		step.CanStartNew = &b
	}

	if fv := v.LookupPath(cue.ParsePath("ignoreOutOfOrder")); fv.Exists() {
		b, err := fv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		step.IgnoreOutOfOrder = b
	}

	if fv := v.LookupPath(cue.ParsePath("filter")); fv.Exists() {
		f, err := compileFilter(fv, path+".filter")
		if err != nil {
			return nil, err
		}
		step.Filter = f
	}

	if fv := v.LookupPath(cue.ParsePath("sequence")); fv.Exists() {
		child, err := compileSequence(fv, path+".sequence.")
		if err != nil {
			return nil, err
		}
		step.Sequence = child
	}

	if fv := v.LookupPath(cue.ParsePath("alt")); fv.Exists() {
		alts, err := compileSteps(fv, path+".alt")
		if err != nil {
			return nil, err
		}
		step.Alt = alts
	}

	if fv := v.LookupPath(cue.ParsePath("par")); fv.Exists() {
		branches, err := compileSteps(fv, path+".par")
		if err != nil {
			return nil, err
		}
		step.Par = branches
	}

	return step, nil
}

func compileFilter(v cue.Value, path string) (*ir.FilterSpec, error) {
	if err := checkFields(v, path+".", filterFields); err != nil {
		return nil, err
	}
	var f ir.FilterSpec
	if err := v.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return &f, nil
}

// compileFailures reads the failure map in declaration order.
func compileFailures(v cue.Value, path string) (ir.Failures, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{
			Field:   path,
			Message: "must map failure names to filters",
			Pos:     v.Pos(),
		}
	}

	var failures ir.Failures
	for iter.Next() {
		name := iter.Selector().Unquoted()
		f, err := compileFilter(iter.Value(), path+"."+name)
		if err != nil {
			return nil, err
		}
		failures = append(failures, ir.FailureSpec{Name: name, Filter: *f})
	}
	return failures, nil
}

// checkFields rejects labels outside allowed so typos surface at load time.
func checkFields(v cue.Value, path string, allowed map[string]bool) error {
	iter, err := v.Fields()
	if err != nil {
		return &CompileError{
			Field:   path,
			Message: "must be a struct",
			Pos:     v.Pos(),
		}
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		if !allowed[label] {
			return &CompileError{
				Field:   path + label,
				Message: fmt.Sprintf("unknown field %q", label),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}
