package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/seqcheck/internal/filter"
	"github.com/roach88/seqcheck/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrSequenceNameMissing  = "E101" // sequence name is required
	ErrSequenceNoSteps      = "E102" // at least one step required
	ErrStepKindMissing      = "E103" // step has none of filter/sequence/alt/par
	ErrStepKindAmbiguous    = "E104" // step has more than one kind
	ErrAltEmpty             = "E105" // alternation without alternatives
	ErrParEmpty             = "E106" // parallel without branches
	ErrFirstStepNotStarting = "E107" // first step must be able to start an occurrence
	ErrMisplacedIgnoreOrder = "E108" // ignoreOutOfOrder right after an optional step
	ErrInvalidCardinality   = "E109" // card string not understood
	ErrInvalidFailure       = "E110" // malformed failure predicate
	ErrInvalidKPI           = "E111" // KPI reference out of range
	ErrNoMandatoryStep      = "E112" // nothing could ever finish the sequence
	ErrInvalidFilter        = "E113" // filter does not compile
)

// ValidationError represents a construction rule violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a sequence spec against the construction rules.
// Returns all errors found (does not fail-fast).
func Validate(spec *ir.SequenceSpec) []ValidationError {
	v := &validator{}
	v.sequence(spec, "", true)
	return v.errs
}

type validator struct {
	errs []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *validator) sequence(spec *ir.SequenceSpec, path string, root bool) {
	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		v.add(path+"name", ErrSequenceNameMissing, "sequence name is required")
	}

	// E102: at least one step
	if len(spec.Steps) == 0 {
		v.add(path+"steps", ErrSequenceNoSteps, "at least one step is required")
	}

	cards := make([]*ir.Cardinality, len(spec.Steps))
	for i := range spec.Steps {
		cards[i] = v.step(&spec.Steps[i], fmt.Sprintf("%ssteps[%d]", path, i))
	}

	// E107: first step must be able to start an occurrence
	if len(spec.Steps) > 0 && !spec.Steps[0].StartsNew() {
		v.add(path+"steps[0].canCreateNew", ErrFirstStepNotStarting,
			"first step must be able to start a new occurrence")
	}

	// E108: ignoreOutOfOrder directly after a step that may be absent
	for i := 1; i < len(spec.Steps); i++ {
		if spec.Steps[i].IgnoreOutOfOrder && cards[i-1] != nil && !cards[i-1].Mandatory() {
			v.add(fmt.Sprintf("%ssteps[%d].ignoreOutOfOrder", path, i), ErrMisplacedIgnoreOrder,
				"ignoreOutOfOrder must not follow an optional step")
		}
	}

	// E112: some step has to be mandatory for an occurrence to finish
	v.requireMandatory(spec.Steps, cards, path+"steps")

	v.failures(spec.Failures, path+"failures")

	if root {
		v.kpis(spec, path+"kpis")
	} else if len(spec.KPIs) > 0 {
		v.add(path+"kpis", ErrInvalidKPI, "kpis are only supported on the top-level sequence")
	}
}

// step validates one step and returns its cardinality, nil when invalid.
func (v *validator) step(step *ir.StepSpec, path string) *ir.Cardinality {
	var card *ir.Cardinality
	if c, err := ir.ParseCardinality(step.Card); err != nil {
		v.add(path+".card", ErrInvalidCardinality, "%v", err)
	} else {
		card = &c
	}

	kinds := step.Kinds()
	switch len(kinds) {
	case 0:
		v.add(path, ErrStepKindMissing, "step needs one of filter, sequence, alt or par")
		return card
	case 1:
	default:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		v.add(path, ErrStepKindAmbiguous, "step has more than one kind: %s", strings.Join(names, ", "))
		return card
	}

	switch kinds[0] {
	case ir.StepKindFilter:
		if _, err := filter.New(*step.Filter); err != nil {
			v.add(path+".filter", ErrInvalidFilter, "%v", err)
		}
	case ir.StepKindSequence:
		v.sequence(step.Sequence, path+".sequence.", false)
	case ir.StepKindAlt:
		if len(step.Alt) == 0 {
			v.add(path+".alt", ErrAltEmpty, "alternation needs at least one alternative")
		}
		for i := range step.Alt {
			v.step(&step.Alt[i], fmt.Sprintf("%s.alt[%d]", path, i))
		}
	case ir.StepKindPar:
		if len(step.Par) == 0 {
			v.add(path+".par", ErrParEmpty, "parallel needs at least one branch")
			return card
		}
		cards := make([]*ir.Cardinality, len(step.Par))
		for i := range step.Par {
			cards[i] = v.step(&step.Par[i], fmt.Sprintf("%s.par[%d]", path, i))
		}
		v.requireMandatory(step.Par, cards, path+".par")
	default:
		panic(fmt.Sprintf("unknown step kind %q", kinds[0]))
	}
	return card
}

func (v *validator) requireMandatory(steps []ir.StepSpec, cards []*ir.Cardinality, path string) {
	if len(steps) == 0 {
		return
	}
	for _, c := range cards {
		if c == nil || c.Mandatory() {
			return
		}
	}
	v.add(path, ErrNoMandatoryStep, "at least one step must be mandatory")
}

func (v *validator) failures(failures ir.Failures, path string) {
	seen := make(map[string]bool, len(failures))
	for _, f := range failures {
		if strings.TrimSpace(f.Name) == "" {
			v.add(path, ErrInvalidFailure, "failure name must not be empty")
			continue
		}
		if seen[f.Name] {
			v.add(path+"."+f.Name, ErrInvalidFailure, "duplicate failure %q", f.Name)
			continue
		}
		seen[f.Name] = true
		if _, err := filter.New(f.Filter); err != nil {
			v.add(path+"."+f.Name, ErrInvalidFailure, "%v", err)
		}
	}
}

func (v *validator) kpis(spec *ir.SequenceSpec, path string) {
	seen := make(map[string]bool)
	for i, kpi := range spec.KPIs {
		field := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(kpi.Name) == "" {
			v.add(field+".name", ErrInvalidKPI, "kpi name is required")
		} else if seen[kpi.Name] {
			v.add(field+".name", ErrInvalidKPI, "duplicate kpi name %q", kpi.Name)
		}
		seen[kpi.Name] = true

		if kpi.Start == 0 && kpi.End == 0 {
			v.add(field, ErrInvalidKPI, "kpi needs a start or end step")
		}
		for _, ref := range []struct {
			name string
			nr   int
		}{{"start", kpi.Start}, {"end", kpi.End}} {
			if ref.nr < 0 || ref.nr > len(spec.Steps) {
				v.add(field+"."+ref.name, ErrInvalidKPI,
					"step %d does not exist (sequence has %d steps)", ref.nr, len(spec.Steps))
			}
		}
	}
}
