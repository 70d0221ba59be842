package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/uber-go/tally/v4"

	"github.com/roach88/seqcheck/internal/compiler"
	"github.com/roach88/seqcheck/internal/ir"
)

// Checker matches one message stream against one sequence.
type Checker struct {
	spec         ir.SequenceSpec
	specHash     string
	seq          *Sequence
	occurrences  []*Occurrence
	open         *Occurrence
	processed    int64
	logger       *slog.Logger
	metrics      tally.Scope
	newPredicate PredicateFactory
	tr           *tracer
}

// Option configures a Checker.
type Option func(*Checker)

// WithPredicateFactory replaces the DLT filter with another predicate
// implementation.
func WithPredicateFactory(f PredicateFactory) Option {
	return func(c *Checker) {
		c.newPredicate = f
	}
}

// WithLogger sets the logger for diagnostics.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics reports message and fault counters to scope.
// Default is tally.NoopScope.
func WithMetrics(scope tally.Scope) Option {
	return func(c *Checker) {
		c.metrics = scope
	}
}

// New validates spec and compiles it into a Checker.
// Every construction rule violation is reported in a *BuildError; no
// Checker is returned alongside an error.
func New(spec ir.SequenceSpec, opts ...Option) (*Checker, error) {
	c := &Checker{
		spec:         spec,
		logger:       slog.Default(),
		metrics:      tally.NoopScope,
		newPredicate: defaultPredicateFactory,
	}
	for _, opt := range opts {
		opt(c)
	}

	if errs := compiler.Validate(&spec); len(errs) > 0 {
		return nil, &BuildError{Sequence: spec.Name, Errors: errs}
	}

	b := &builder{newPredicate: c.newPredicate}
	seq, err := b.sequence(spec.Name, "", spec.Steps, spec.Failures)
	if err != nil {
		return nil, &BuildError{Sequence: spec.Name, Err: err}
	}
	seq.root = true
	c.seq = seq

	hash, err := ir.SpecHash(spec)
	if err != nil {
		return nil, fmt.Errorf("hashing sequence %q: %w", spec.Name, err)
	}
	c.specHash = hash

	c.metrics = c.metrics.Tagged(map[string]string{"sequence": spec.Name})
	c.tr = newTracer(c.logger.With("sequence", spec.Name), c.metrics)
	return c, nil
}

// Name returns the sequence name.
func (c *Checker) Name() string {
	return c.seq.name
}

// SpecHash returns the content hash of the sequence spec.
func (c *Checker) SpecHash() string {
	return c.specHash
}

// Sequence returns the compiled root sequence.
func (c *Checker) Sequence() *Sequence {
	return c.seq
}

// Processed returns the number of messages seen so far.
func (c *Checker) Processed() int64 {
	return c.processed
}

// Occurrences returns every occurrence created so far, in creation order.
func (c *Checker) Occurrences() []*Occurrence {
	return c.occurrences
}

// Process folds one message into the checker's state.
func (c *Checker) Process(msg *ir.Message) {
	c.processed++
	c.tr.count(metricMessages)

	outcome, occ := c.seq.process(msg, c.open, c.newOccurrence, c.tr)
	if outcome == dispatchIgnored {
		c.tr.count(metricIgnored)
		return
	}
	c.open = nil
	if occ != nil && !occ.Finished() {
		c.open = occ
	}
}

// ProcessAll processes msgs in order.
func (c *Checker) ProcessAll(msgs []ir.Message) {
	for i := range msgs {
		c.Process(&msgs[i])
	}
}

func (c *Checker) newOccurrence(msg *ir.Message, step Step) *Occurrence {
	occ := c.seq.newOccurrence(msg, step, NewContext(), len(c.occurrences)+1)
	c.occurrences = append(c.occurrences, occ)
	c.tr.infof("%s started by step #%s at msg #%d", occ.label(), step.Key(), msg.Index)
	c.tr.count(metricStarted)
	return occ
}

// Result exports the current state. It may be called at any time,
// including mid-stream; it does not change the checker.
func (c *Checker) Result() *ir.SequenceResult {
	res := &ir.SequenceResult{
		Sequence:    c.seq.name,
		SpecHash:    c.specHash,
		Occurrences: make([]ir.OccurrenceResult, 0, len(c.occurrences)),
		Logs:        slices.Clone(c.tr.lines),
	}
	for _, occ := range c.occurrences {
		r := occ.Result()
		if occ.Finished() {
			r.KPIs = computeKPIs(c.spec.KPIs, occ)
		}
		res.Occurrences = append(res.Occurrences, r)
	}
	return res
}

// Filters returns every filter the checker evaluates: step filters depth
// first in declaration order, then failure filters in evaluation order,
// the root sequence's first.
func (c *Checker) Filters() []ir.FilterSpec {
	var filters []ir.FilterSpec
	var failures []ir.FilterSpec

	collectFailures := func(seq *Sequence) {
		for _, f := range seq.failures {
			failures = append(failures, f.spec)
		}
	}
	collectFailures(c.seq)
	Walk(c.seq.steps, func(s Step) {
		switch st := s.(type) {
		case *LeafStep:
			filters = append(filters, st.spec)
		case *SeqStep:
			collectFailures(st.child)
		}
	})

	return append(filters, failures...)
}
