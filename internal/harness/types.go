package harness

import (
	"github.com/roach88/seqcheck/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the build expectation and all assertions hold.
	Pass bool `json:"pass"`

	// RunID identifies the stored run. Empty when the sequence was rejected.
	RunID string `json:"run_id,omitempty"`

	// Sequence is the checker result. Nil when the sequence was rejected.
	Sequence *ir.SequenceResult `json:"sequence,omitempty"`

	// BuildErrors lists the validation codes reported at construction.
	BuildErrors []string `json:"build_errors,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Occurrence returns the occurrence with the given 1-based instance.
func (r *Result) Occurrence(instance int) (*ir.OccurrenceResult, bool) {
	if r.Sequence == nil {
		return nil, false
	}
	for i := range r.Sequence.Occurrences {
		if r.Sequence.Occurrences[i].Instance == instance {
			return &r.Sequence.Occurrences[i], true
		}
	}
	return nil, false
}

// Statuses returns the occurrence statuses in creation order.
func (r *Result) Statuses() []ir.Status {
	if r.Sequence == nil {
		return nil
	}
	out := make([]ir.Status, len(r.Sequence.Occurrences))
	for i, occ := range r.Sequence.Occurrences {
		out[i] = occ.Status
	}
	return out
}
