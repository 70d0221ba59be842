package engine

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

// slotEntry is one result of a step: a matched event or a child occurrence.
type slotEntry struct {
	event *ir.Event
	child *Occurrence
}

// Occurrence is one attempt to match a sequence. It is open until it
// either fails or reaches its finishing condition, and it never reopens.
type Occurrence struct {
	// Instance is the 1-based creation index within the owning sequence
	// (or within the parent step for child occurrences).
	Instance int

	seq       *Sequence
	start     ir.Event
	slots     map[string][]slotEntry
	via       map[string]string
	faults    []*Fault
	ctx       *Context
	maxStepNr int
	lastStep  int
}

// Sequence returns the sequence the occurrence belongs to.
func (o *Occurrence) Sequence() *Sequence {
	return o.seq
}

// Context returns the captured context, shared with child occurrences.
func (o *Occurrence) Context() *Context {
	return o.ctx
}

// MaxStepNr returns the highest step ordinal matched so far.
func (o *Occurrence) MaxStepNr() int {
	return o.maxStepNr
}

// Faults returns the recorded faults in order.
func (o *Occurrence) Faults() []*Fault {
	return o.faults
}

// Failures returns the failure messages in order.
func (o *Occurrence) Failures() []string {
	if len(o.faults) == 0 {
		return nil
	}
	out := make([]string, len(o.faults))
	for i, f := range o.faults {
		out[i] = f.Message
	}
	return out
}

func (o *Occurrence) label() string {
	return fmt.Sprintf("%s #%d", o.seq.name, o.Instance)
}

func (o *Occurrence) slot(key string) []slotEntry {
	return o.slots[key]
}

func (o *Occurrence) appendEvent(key string, ev ir.Event) {
	o.slots[key] = append(o.slots[key], slotEntry{event: &ev})
}

func (o *Occurrence) appendChild(key string, child *Occurrence) {
	o.slots[key] = append(o.slots[key], slotEntry{child: child})
}

// advance raises maxStepNr to nr. maxStepNr never decreases.
func (o *Occurrence) advance(nr int) {
	o.maxStepNr = max(o.maxStepNr, nr)
}

// fail records a fault, which closes the occurrence.
func (o *Occurrence) fail(f *Fault, tr *tracer) {
	o.faults = append(o.faults, f)
	tr.fault(o, f)
}

// Finished reports whether the occurrence is closed: it failed, or the last
// mandatory step is satisfied (for parallel rounds, every mandatory branch).
func (o *Occurrence) Finished() bool {
	if len(o.faults) > 0 {
		return true
	}
	if o.seq.parallel {
		for _, step := range o.seq.steps {
			if step.Card().Mandatory() && !step.satisfied(o) {
				return false
			}
		}
		return true
	}
	if o.seq.lastMandatory < 0 {
		return false
	}
	return o.seq.steps[o.seq.lastMandatory].satisfied(o)
}

// Status classifies the occurrence. It has no side effects.
//
//  1. any failure is an error
//  2. an error (warning) in a step result propagates
//  3. a missing mandatory step followed by a satisfied one is an error
//  4. any other missing mandatory step leaves the occurrence undefined
func (o *Occurrence) Status() ir.Status {
	if len(o.faults) > 0 {
		return ir.StatusError
	}

	status := ir.StatusOK
	for _, step := range o.seq.steps {
		switch o.stepStatus(step) {
		case ir.StatusError:
			return ir.StatusError
		case ir.StatusWarning:
			status = ir.StatusWarning
		}
	}

	missing := 0
	for _, step := range o.seq.steps {
		if !step.Card().Mandatory() || step.satisfied(o) {
			continue
		}
		missing++
		for _, later := range o.seq.steps {
			if later.Nr() > step.Nr() && later.Card().Mandatory() && later.satisfied(o) {
				return ir.StatusError
			}
		}
	}
	if missing > 0 {
		return ir.StatusUndefined
	}
	return status
}

func (o *Occurrence) stepStatus(step Step) ir.Status {
	status := ir.StatusOK
	for _, e := range o.slot(step.Key()) {
		var s ir.Status
		if e.event != nil {
			s = e.event.Summary
		} else {
			s = e.child.Status()
		}
		switch s {
		case ir.StatusError:
			return ir.StatusError
		case ir.StatusWarning:
			status = ir.StatusWarning
		}
	}
	return status
}

// Result exports the occurrence. Every declared step gets an entry; a
// mandatory step without any match gets a synthetic missing event.
func (o *Occurrence) Result() ir.OccurrenceResult {
	status := o.Status()
	start := o.start
	start.Summary = status

	res := ir.OccurrenceResult{
		Instance: o.Instance,
		Start:    start,
		Status:   status,
		Failures: o.Failures(),
		Steps:    make([]ir.StepResult, 0, len(o.seq.steps)),
	}
	if o.ownsContext() {
		res.Context = o.ctx.Pairs()
	}

	for _, step := range o.seq.steps {
		sr := ir.StepResult{
			Key:  step.Key(),
			Name: step.Name(),
			Via:  o.via[step.Key()],
		}
		slot := o.slot(step.Key())
		for _, e := range slot {
			if e.event != nil {
				sr.Events = append(sr.Events, *e.event)
			} else {
				sr.Occurrences = append(sr.Occurrences, e.child.Result())
			}
		}
		if len(slot) == 0 && step.Card().Mandatory() {
			sr.Events = []ir.Event{{
				Type:    ir.EventMissing,
				Title:   fmt.Sprintf("mandatory step #%s missing", step.Key()),
				Summary: ir.StatusUndefined,
			}}
		}
		res.Steps = append(res.Steps, sr)
	}
	return res
}

// ownsContext is false for child occurrences, which share the context of
// the top-level occurrence.
func (o *Occurrence) ownsContext() bool {
	return o.seq.root
}

// firstMatch returns the first accepted event of the step at index idx, or
// the start event of its first child occurrence.
func (o *Occurrence) firstMatch(idx int) *ir.Event {
	for _, e := range o.slot(o.seq.steps[idx].Key()) {
		switch {
		case e.child != nil:
			return &e.child.start
		case e.event.Summary != ir.StatusError:
			return e.event
		}
	}
	return nil
}
