package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/seqcheck/internal/compiler"
)

// FaultCode categorizes matching faults.
type FaultCode string

const (
	// FaultOutOfOrder indicates the occurrence already progressed past the step.
	FaultOutOfOrder FaultCode = "OUT_OF_ORDER"

	// FaultCardinality indicates the step already reached its maximum count.
	FaultCardinality FaultCode = "CARDINALITY_EXCEEDED"

	// FaultContextConflict indicates a pinned context key was captured with a
	// different value.
	FaultContextConflict FaultCode = "CONTEXT_CONFLICT"

	// FaultFailureMatched indicates a failure predicate matched.
	FaultFailureMatched FaultCode = "FAILURE_MATCHED"
)

// Fault is a matching fault recorded on an occurrence.
// Faults are never returned to callers of Process; they close the occurrence
// and classify it as error.
type Fault struct {
	// Code identifies the fault category.
	Code FaultCode

	// Message is the text exported in the occurrence's failure list.
	Message string

	// StepKey identifies the step, empty for failure predicates.
	StepKey string

	// MsgIndex is the index of the message that caused the fault.
	MsgIndex int64
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s (msg #%d)", f.Code, f.Message, f.MsgIndex)
}

func newOutOfOrderFault(key string, maxStepNr int, msgIndex int64) *Fault {
	return &Fault{
		Code:     FaultOutOfOrder,
		Message:  fmt.Sprintf("step #%s out of order (maxStepNr=%d)", key, maxStepNr),
		StepKey:  key,
		MsgIndex: msgIndex,
	}
}

func newCardinalityFault(key string, limit int, msgIndex int64) *Fault {
	return &Fault{
		Code:     FaultCardinality,
		Message:  fmt.Sprintf("step #%s exceeded cardinality %d", key, limit),
		StepKey:  key,
		MsgIndex: msgIndex,
	}
}

func newContextConflictFault(key, ctxKey, had, got string, msgIndex int64) *Fault {
	return &Fault{
		Code:     FaultContextConflict,
		Message:  fmt.Sprintf("step #%s context conflict for %q: %q != %q", key, ctxKey, had, got),
		StepKey:  key,
		MsgIndex: msgIndex,
	}
}

func newFailureFault(name string, msgIndex int64) *Fault {
	return &Fault{
		Code:     FaultFailureMatched,
		Message:  name,
		MsgIndex: msgIndex,
	}
}

// BuildError reports why a Checker could not be constructed.
// No partial matcher is ever returned alongside it.
type BuildError struct {
	// Sequence is the name of the root sequence.
	Sequence string

	// Errors lists every construction rule violation.
	Errors []compiler.ValidationError

	// Err is set when a predicate could not be created.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sequence %q: %v", e.Sequence, e.Err)
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("sequence %q: %s", e.Sequence, strings.Join(msgs, "; "))
}

// Unwrap returns the underlying predicate error, if any.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsBuildError returns true if err is or wraps a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
