package engine

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

// dispatch is the outcome of offering a message to a sequence.
type dispatch int

const (
	// dispatchIgnored means no step consumed the message.
	dispatchIgnored dispatch = iota

	// dispatchFailed means only a failure predicate matched, closing the
	// open occurrence.
	dispatchFailed

	// dispatchAccepted means a step consumed the message.
	dispatchAccepted
)

// failure is a named predicate that closes the open occurrence as failed.
type failure struct {
	name string
	spec ir.FilterSpec
	pred Predicate
}

// Sequence is a compiled list of steps plus its failure predicates.
// Parallel sequences hold the branches of a ParStep; their occurrences are
// rounds that finish once every mandatory branch is satisfied.
type Sequence struct {
	name          string
	steps         []Step
	failures      []failure
	parallel      bool
	root          bool
	lastMandatory int
}

func newSequence(name string, steps []Step, failures []failure, parallel bool) *Sequence {
	lastMandatory := -1
	for i, s := range steps {
		if s.Card().Mandatory() {
			lastMandatory = i
		}
	}
	return &Sequence{
		name:          name,
		steps:         steps,
		failures:      failures,
		parallel:      parallel,
		lastMandatory: lastMandatory,
	}
}

// Name returns the sequence name.
func (s *Sequence) Name() string {
	return s.name
}

// Steps returns the top-level steps in declaration order.
func (s *Sequence) Steps() []Step {
	return s.steps
}

// Parallel reports whether the sequence holds parallel branches.
func (s *Sequence) Parallel() bool {
	return s.parallel
}

func (s *Sequence) newOccurrence(msg *ir.Message, step Step, ctx *Context, instance int) *Occurrence {
	return &Occurrence{
		Instance: instance,
		seq:      s,
		start: ir.Event{
			Type:      ir.EventSequence,
			Title:     s.name,
			TimeMs:    msg.ReceptionTimeMs,
			TimeStamp: msg.TimeStamp,
			Lifecycle: msg.Lifecycle,
			MsgIndex:  msg.Index,
			MsgText:   fmt.Sprintf("started by step #%s", step.Key()),
		},
		slots:    make(map[string][]slotEntry),
		via:      make(map[string]string),
		ctx:      ctx,
		lastStep: -1,
	}
}

// process offers msg to the sequence. open is the occurrence still running,
// nil when none is. Failure predicates are evaluated first; the steps are
// then searched starting at the step that matched last (or the one after
// it when that step cannot take more) and wrapping around. The first step
// that consumes the message wins.
func (s *Sequence) process(msg *ir.Message, open *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (dispatch, *Occurrence) {
	outcome := dispatchIgnored
	for _, f := range s.failures {
		if !f.pred.Matches(msg) {
			continue
		}
		if open == nil {
			tr.logf("%s: failure %q matched msg #%d without an open occurrence", s.name, f.name, msg.Index)
			tr.count(metricFailureUnused)
			break
		}
		open.fail(newFailureFault(f.name, msg.Index), tr)
		open = nil
		outcome = dispatchFailed
		break
	}

	n := len(s.steps)
	start := 0
	if open != nil && open.lastStep >= 0 {
		start = open.lastStep
		if !acceptsMore(s.steps[start], open) {
			start = (start + 1) % n
		}
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		updated, occ := s.steps[idx].process(msg, open, newOcc, tr)
		if !updated {
			continue
		}
		if occ != nil {
			occ.lastStep = idx
			if occ.Finished() {
				tr.infof("%s closed at msg #%d", occ.label(), msg.Index)
			}
		}
		return dispatchAccepted, occ
	}

	if outcome == dispatchIgnored {
		tr.logger.Debug("message ignored", "sequence", s.name, "msg_index", msg.Index)
	}
	return outcome, open
}
