package engine

import (
	"fmt"
	"log/slog"

	"github.com/uber-go/tally/v4"
)

// Metric names reported through the tally scope.
const (
	metricMessages      = "messages"
	metricIgnored       = "messages_ignored"
	metricStarted       = "occurrences_started"
	metricFaults        = "faults"
	metricFailureUnused = "failures_without_occurrence"
)

// tracer collects the diagnostic log lines of one checker run and mirrors
// them to slog and tally.
type tracer struct {
	logger *slog.Logger
	scope  tally.Scope
	lines  []string
}

func newTracer(logger *slog.Logger, scope tally.Scope) *tracer {
	return &tracer{logger: logger, scope: scope}
}

// logf records a diagnostic line that becomes part of the result's Logs.
func (t *tracer) logf(format string, args ...any) {
	t.logger.Debug(t.record(format, args...))
}

// infof is logf at Info level, used for occurrence creation and closure.
func (t *tracer) infof(format string, args ...any) {
	t.logger.Info(t.record(format, args...))
}

func (t *tracer) record(format string, args ...any) string {
	line := fmt.Sprintf(format, args...)
	t.lines = append(t.lines, line)
	return line
}

// fault records a fault that closed occ.
func (t *tracer) fault(occ *Occurrence, f *Fault) {
	t.logf("%s: %s at msg #%d", occ.label(), f.Message, f.MsgIndex)
	t.scope.Tagged(map[string]string{"code": string(f.Code)}).Counter(metricFaults).Inc(1)
	t.logger.Info("occurrence failed",
		"occurrence", occ.label(),
		"code", string(f.Code),
		"msg_index", f.MsgIndex)
}

// count increments a plain counter.
func (t *tracer) count(name string) {
	t.scope.Counter(name).Inc(1)
}
