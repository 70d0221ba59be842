package engine

import (
	"github.com/roach88/seqcheck/internal/ir"
)

// SeqStep matches a nested sequence. Each completed child occurrence counts
// as one match of the step.
type SeqStep struct {
	nested
}

// Child returns the nested sequence.
func (s *SeqStep) Child() *Sequence {
	return s.child
}

func (s *SeqStep) process(msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence) {
	return s.nested.process(s, msg, occ, newOcc, tr)
}

// ParStep matches its branches in any order. Each round in which every
// mandatory branch is satisfied counts as one match of the step.
type ParStep struct {
	nested
}

// Branches returns the parallel branches.
func (s *ParStep) Branches() []Step {
	return s.child.steps
}

func (s *ParStep) process(msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence) {
	return s.nested.process(s, msg, occ, newOcc, tr)
}

// nested is the shared behavior of steps whose matches are child
// occurrences of an inner sequence.
type nested struct {
	stepBase
	child *Sequence
}

func (n *nested) process(self Step, msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence) {
	if occ == nil && !n.canStartNew {
		return false, nil
	}

	outcome, occ, created := n.offer(self, msg, occ, newOcc, tr)
	switch outcome {
	case dispatchIgnored:
		return false, occ
	case dispatchFailed:
		// A failure predicate of the child sequence closed the running child.
		return true, occ
	}

	fault := n.check(occ, msg, len(created) > 0)
	if fault == nil {
		n.commit(occ, created)
		return true, occ
	}
	occ.fail(fault, tr)
	if !n.canStartNew {
		return true, occ
	}

	// Re-offer to a fresh parent, created lazily so an ignored message
	// leaves no empty occurrence behind.
	outcome, next, created := n.offer(self, msg, nil, newOcc, tr)
	if outcome != dispatchAccepted || next == nil {
		return true, occ
	}
	if fault := n.check(next, msg, len(created) > 0); fault != nil {
		next.fail(fault, tr)
		return true, next
	}
	n.commit(next, created)
	return true, next
}

// offer passes msg to the child sequence. The running child, if any, is
// continued. New children are collected but only attached by commit.
func (n *nested) offer(self Step, msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (dispatch, *Occurrence, []*Occurrence) {
	var running *Occurrence
	if occ != nil {
		running = n.running(occ)
	}

	var created []*Occurrence
	newChild := func(m *ir.Message, st Step) *Occurrence {
		if occ == nil {
			occ = newOcc(m, self)
		}
		instance := len(occ.slot(n.key)) + len(created) + 1
		child := n.child.newOccurrence(m, st, occ.ctx, instance)
		created = append(created, child)
		tr.infof("%s: %s started by step #%s at msg #%d", occ.label(), child.label(), st.Key(), m.Index)
		return child
	}

	outcome, _ := n.child.process(msg, running, newChild, tr)
	return outcome, occ, created
}

// running returns the last child occurrence if it is still open.
func (n *nested) running(occ *Occurrence) *Occurrence {
	slot := occ.slot(n.key)
	if len(slot) == 0 {
		return nil
	}
	if last := slot[len(slot)-1].child; last != nil && !last.Finished() {
		return last
	}
	return nil
}

func (n *nested) check(occ *Occurrence, msg *ir.Message, startsChild bool) *Fault {
	if f := n.checkOrder(occ, msg); f != nil {
		return f
	}
	if startsChild && !n.card.Allows(len(occ.slot(n.key))) {
		return newCardinalityFault(n.key, n.card.Max, msg.Index)
	}
	return nil
}

func (n *nested) commit(occ *Occurrence, created []*Occurrence) {
	for _, child := range created {
		occ.appendChild(n.key, child)
	}
	occ.advance(n.nr)
}

func (n *nested) satisfied(occ *Occurrence) bool {
	slot := occ.slot(n.key)
	if len(slot) < minCount(n.card) {
		return false
	}
	last := slot[len(slot)-1].child
	return last == nil || last.Finished()
}
