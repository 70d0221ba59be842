package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/seqcheck/internal/engine"
	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/store"
	"github.com/roach88/seqcheck/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic message stream and run ids.
type Harness struct {
	store  *store.Store
	runIDs engine.RunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Resolve and build the sequence (checking expect_build_error)
//  3. Stamp and process the messages
//  4. Store the run
//  5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: engine.NewFixedGenerator(scenario.runID()),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := scenario.resolveSequence()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sequence: %w", err)
	}

	result := NewResult()

	checker, err := engine.New(*spec, engine.WithLogger(h.logger))
	if err != nil {
		var be *engine.BuildError
		if !errors.As(err, &be) {
			return nil, fmt.Errorf("failed to build checker: %w", err)
		}
		h.checkBuildError(be, scenario.ExpectBuildError, result)
		return result, nil
	}
	if scenario.ExpectBuildError != "" {
		result.AddError(fmt.Sprintf("expected build error %s, sequence %q was accepted",
			scenario.ExpectBuildError, spec.Name))
		return result, nil
	}

	msgs := stamp(scenario.Messages)
	checker.ProcessAll(msgs)
	res := checker.Result()
	result.Sequence = res

	run, err := store.NewRunRecord(h.runIDs.Generate(), scenario.Name, int64(len(msgs)), res)
	if err != nil {
		return nil, err
	}
	if err := h.store.WriteRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	result.RunID = run.ID

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// checkBuildError records the codes of be and compares them with the
// expected code. An unexpected rejection fails the scenario.
func (h *Harness) checkBuildError(be *engine.BuildError, want string, result *Result) {
	for _, ve := range be.Errors {
		result.BuildErrors = append(result.BuildErrors, ve.Code)
	}

	if want == "" {
		result.AddError(fmt.Sprintf("sequence rejected: %v", be))
		return
	}
	for _, code := range result.BuildErrors {
		if code == want {
			return
		}
	}
	result.AddError(fmt.Sprintf("expected build error %s, got [%s]",
		want, strings.Join(result.BuildErrors, ", ")))
}

// stamp fills index, times and ECU of scripted messages.
func stamp(msgs []ir.Message) []ir.Message {
	stream := testutil.NewStream()
	for _, m := range msgs {
		stream.Add(m)
	}
	return stream.Messages()
}
