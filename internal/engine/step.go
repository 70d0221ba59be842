package engine

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/seqcheck/internal/filter"
	"github.com/roach88/seqcheck/internal/ir"
)

// Predicate decides whether a single message matches.
type Predicate interface {
	Matches(msg *ir.Message) bool
}

// Capturer is implemented by predicates that capture context values from
// named groups of their payload regex.
type Capturer interface {
	CaptureRegex() *regexp.Regexp
}

// PredicateFactory creates the predicate for a filter description.
type PredicateFactory func(spec ir.FilterSpec) (Predicate, error)

// defaultPredicateFactory builds the DLT message filter.
func defaultPredicateFactory(spec ir.FilterSpec) (Predicate, error) {
	f, err := filter.New(spec)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Step is one node of a compiled sequence.
// The concrete type is always one of *LeafStep, *SeqStep, *AltStep or
// *ParStep.
type Step interface {
	// Nr is the 1-based ordinal within the enclosing sequence.
	// Alternatives share the ordinal of their alternation and parallel
	// branches all have ordinal 1.
	Nr() int

	// Key is the stable path of the step, e.g. "2.1" or "3.a2".
	Key() string

	// Name is the optional display name.
	Name() string

	// Card is the resolved cardinality.
	Card() ir.Cardinality

	// CanStartNew reports whether the step may originate an occurrence.
	CanStartNew() bool

	// process offers msg to the step within occ (nil when no occurrence is
	// open). It reports whether the step consumed the message and returns
	// the occurrence the message landed in.
	process(msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence)

	// satisfied reports whether occ holds enough matches of the step.
	satisfied(occ *Occurrence) bool

	sealed()
}

// newOccurrenceFunc creates the occurrence a step starts with msg.
type newOccurrenceFunc func(msg *ir.Message, step Step) *Occurrence

type stepBase struct {
	nr               int
	key              string
	name             string
	card             ir.Cardinality
	canStartNew      bool
	ignoreOutOfOrder bool
}

func (b *stepBase) Nr() int              { return b.nr }
func (b *stepBase) Key() string          { return b.key }
func (b *stepBase) Name() string         { return b.name }
func (b *stepBase) Card() ir.Cardinality { return b.card }
func (b *stepBase) CanStartNew() bool    { return b.canStartNew }
func (b *stepBase) sealed()              {}

// checkOrder returns a fault when occ already progressed past the step.
func (b *stepBase) checkOrder(occ *Occurrence, msg *ir.Message) *Fault {
	if b.ignoreOutOfOrder || occ.maxStepNr <= b.nr {
		return nil
	}
	return newOutOfOrderFault(b.key, occ.maxStepNr, msg.Index)
}

// acceptsMore reports whether step can take another match in occ: nothing
// matched yet, a child occurrence is still running or the count is below
// the maximum.
func acceptsMore(step Step, occ *Occurrence) bool {
	slot := occ.slot(step.Key())
	if len(slot) == 0 {
		return true
	}
	if last := slot[len(slot)-1].child; last != nil && !last.Finished() {
		return true
	}
	return step.Card().Allows(len(slot))
}

// minCount is the number of matches that satisfies a step.
func minCount(card ir.Cardinality) int {
	return max(card.Min, 1)
}

// inherited carries the settings alternatives take from their alternation.
type inherited struct {
	card             ir.Cardinality
	canStartNew      bool
	ignoreOutOfOrder bool
}

// builder compiles step specs into steps.
type builder struct {
	newPredicate PredicateFactory
}

func (b *builder) sequence(name, prefix string, specs []ir.StepSpec, failures ir.Failures) (*Sequence, error) {
	steps := make([]Step, len(specs))
	for i := range specs {
		step, err := b.step(&specs[i], i+1, prefix+strconv.Itoa(i+1), nil)
		if err != nil {
			return nil, err
		}
		steps[i] = step
	}
	preds, err := b.failures(failures)
	if err != nil {
		return nil, err
	}
	return newSequence(name, steps, preds, false), nil
}

func (b *builder) parallel(name, prefix string, specs []ir.StepSpec) (*Sequence, error) {
	steps := make([]Step, len(specs))
	for i := range specs {
		step, err := b.step(&specs[i], 1, prefix+"p"+strconv.Itoa(i+1), nil)
		if err != nil {
			return nil, err
		}
		steps[i] = step
	}
	return newSequence(name, steps, nil, true), nil
}

// failures builds the failure predicates in declaration order.
func (b *builder) failures(specs ir.Failures) ([]failure, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	failures := make([]failure, 0, len(specs))
	for _, fs := range specs {
		spec := fs.Filter
		if spec.Name == "" {
			spec.Name = fs.Name
		}
		pred, err := b.newPredicate(spec)
		if err != nil {
			return nil, fmt.Errorf("failure %q: %w", fs.Name, err)
		}
		failures = append(failures, failure{name: fs.Name, spec: spec, pred: pred})
	}
	return failures, nil
}

func (b *builder) step(spec *ir.StepSpec, nr int, key string, inherit *inherited) (Step, error) {
	card, err := ir.ParseCardinality(spec.Card)
	if err != nil {
		return nil, fmt.Errorf("step #%s: %w", key, err)
	}
	base := stepBase{
		nr:               nr,
		key:              key,
		name:             spec.Name,
		card:             card,
		canStartNew:      spec.StartsNew(),
		ignoreOutOfOrder: spec.IgnoreOutOfOrder,
	}
	if inherit != nil {
		base.card = inherit.card
		base.canStartNew = inherit.canStartNew
		base.ignoreOutOfOrder = base.ignoreOutOfOrder || inherit.ignoreOutOfOrder
	}

	kinds := spec.Kinds()
	if len(kinds) != 1 {
		return nil, fmt.Errorf("step #%s: expected exactly one kind, got %d", key, len(kinds))
	}

	switch kinds[0] {
	case ir.StepKindFilter:
		pred, err := b.newPredicate(*spec.Filter)
		if err != nil {
			return nil, fmt.Errorf("step #%s: %w", key, err)
		}
		return &LeafStep{stepBase: base, pred: pred, spec: *spec.Filter}, nil

	case ir.StepKindSequence:
		child, err := b.sequence(spec.Sequence.Name, key+".", spec.Sequence.Steps, spec.Sequence.Failures)
		if err != nil {
			return nil, err
		}
		return &SeqStep{nested{stepBase: base, child: child}}, nil

	case ir.StepKindAlt:
		alts := make([]Step, len(spec.Alt))
		inherit := &inherited{
			card:             base.card,
			canStartNew:      base.canStartNew,
			ignoreOutOfOrder: base.ignoreOutOfOrder,
		}
		for j := range spec.Alt {
			alt, err := b.step(&spec.Alt[j], nr, key+".a"+strconv.Itoa(j+1), inherit)
			if err != nil {
				return nil, err
			}
			alts[j] = alt
		}
		return &AltStep{stepBase: base, alts: alts}, nil

	case ir.StepKindPar:
		name := spec.Name
		if name == "" {
			name = "par #" + key
		}
		child, err := b.parallel(name, key+".", spec.Par)
		if err != nil {
			return nil, err
		}
		return &ParStep{nested{stepBase: base, child: child}}, nil

	default:
		panic(fmt.Sprintf("unknown step kind %q", kinds[0]))
	}
}

// Walk calls fn for every step below steps, depth first in declaration
// order, including alternatives and parallel branches.
func Walk(steps []Step, fn func(Step)) {
	for _, s := range steps {
		fn(s)
		switch st := s.(type) {
		case *LeafStep:
		case *SeqStep:
			Walk(st.child.steps, fn)
		case *ParStep:
			Walk(st.child.steps, fn)
		case *AltStep:
			Walk(st.alts, fn)
		default:
			panic(fmt.Sprintf("unknown step type %T", s))
		}
	}
}
