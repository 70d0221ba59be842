package engine

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/filter"
	"github.com/roach88/seqcheck/internal/ir"
)

// LeafStep matches single messages against a predicate.
type LeafStep struct {
	stepBase
	pred Predicate
	spec ir.FilterSpec
}

// Filter returns the filter description the step was built from.
func (s *LeafStep) Filter() ir.FilterSpec {
	return s.spec
}

func (s *LeafStep) process(msg *ir.Message, occ *Occurrence, newOcc newOccurrenceFunc, tr *tracer) (bool, *Occurrence) {
	if occ == nil && !s.canStartNew {
		return false, nil
	}
	if !s.pred.Matches(msg) {
		return false, occ
	}
	if occ == nil {
		occ = newOcc(msg, s)
	}

	fault := s.accept(msg, occ)
	if fault == nil {
		return true, occ
	}
	s.reject(msg, occ, fault, tr)
	if !s.canStartNew {
		return true, occ
	}

	// The message that broke occ starts the next one. A second failure is
	// recorded but never forks again.
	next := newOcc(msg, s)
	if fault := s.accept(msg, next); fault != nil {
		s.reject(msg, next, fault, tr)
	}
	return true, next
}

// accept runs the ordering, cardinality and context checks and records the
// match. Nothing is recorded when a check fails.
func (s *LeafStep) accept(msg *ir.Message, occ *Occurrence) *Fault {
	if f := s.checkOrder(occ, msg); f != nil {
		return f
	}
	if !s.card.Allows(len(occ.slot(s.key))) {
		return newCardinalityFault(s.key, s.card.Max, msg.Index)
	}
	captures := s.captures(msg)
	if p, had, ok := occ.ctx.conflict(captures); ok {
		return newContextConflictFault(s.key, p.Key, had, p.Value, msg.Index)
	}
	occ.ctx.merge(captures)
	occ.appendEvent(s.key, s.event(msg, ir.StatusOK))
	occ.advance(s.nr)
	return nil
}

func (s *LeafStep) reject(msg *ir.Message, occ *Occurrence, fault *Fault, tr *tracer) {
	occ.appendEvent(s.key, s.event(msg, ir.StatusError))
	occ.fail(fault, tr)
}

func (s *LeafStep) captures(msg *ir.Message) []ir.ContextPair {
	c, ok := s.pred.(Capturer)
	if !ok {
		return nil
	}
	re := c.CaptureRegex()
	if re == nil {
		return nil
	}
	return filter.Captures(re, msg.Payload)
}

func (s *LeafStep) event(msg *ir.Message, summary ir.Status) ir.Event {
	return ir.Event{
		Type:      ir.EventStep,
		Title:     s.title(),
		TimeMs:    msg.ReceptionTimeMs,
		TimeStamp: msg.TimeStamp,
		Lifecycle: msg.Lifecycle,
		Summary:   summary,
		MsgIndex:  msg.Index,
		MsgText:   msg.Payload,
	}
}

func (s *LeafStep) title() string {
	if s.name != "" {
		return s.name
	}
	if str, ok := s.pred.(fmt.Stringer); ok {
		return str.String()
	}
	return "step #" + s.key
}

func (s *LeafStep) satisfied(occ *Occurrence) bool {
	matched := 0
	for _, e := range occ.slot(s.key) {
		if e.event != nil && e.event.Summary != ir.StatusError {
			matched++
		}
	}
	return matched >= minCount(s.card)
}
