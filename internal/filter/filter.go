package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/seqcheck/internal/ir"
)

var mstpNames = []string{"log", "app_trace", "nw_trace", "control"}

var logLevelNames = []string{"", "fatal", "error", "warn", "info", "debug", "verbose"}

// Filter is a compiled ir.FilterSpec.
type Filter struct {
	spec    ir.FilterSpec
	enabled bool
	mstp    *int

	payloadUpper string
	payloadRegex *regexp.Regexp
}

// New compiles spec. It fails only when the payload regex does not compile.
func New(spec ir.FilterSpec) (*Filter, error) {
	f := &Filter{
		spec:    spec,
		enabled: spec.Enabled == nil || *spec.Enabled,
		mstp:    spec.Mstp,
	}

	// a log level constraint only makes sense for log messages
	if spec.LogLevelMin != nil || spec.LogLevelMax != nil {
		log := ir.MstpLog
		f.mstp = &log
	}

	if spec.PayloadRegex != "" {
		expr := spec.PayloadRegex
		if spec.IgnoreCasePayload {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("filter %s: invalid payloadRegex: %w", f, err)
		}
		f.payloadRegex = re
	} else if spec.IgnoreCasePayload {
		f.payloadUpper = strings.ToUpper(spec.Payload)
	}

	return f, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(spec ir.FilterSpec) *Filter {
	f, err := New(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Spec returns the spec the filter was compiled from.
func (f *Filter) Spec() ir.FilterSpec {
	return f.spec
}

// Matches reports whether msg satisfies every set criterion.
func (f *Filter) Matches(msg *ir.Message) bool {
	if !f.enabled {
		return false // not does not apply here
	}
	if f.matchesAll(msg) {
		return !f.spec.Not
	}
	return f.spec.Not
}

func (f *Filter) matchesAll(msg *ir.Message) bool {
	s := &f.spec
	if f.mstp != nil && msg.Mstp != *f.mstp {
		return false
	}
	// level 0 means unset
	if s.LogLevelMax != nil && *s.LogLevelMax > 0 && msg.Mtin > *s.LogLevelMax {
		return false
	}
	if s.LogLevelMin != nil && *s.LogLevelMin > 0 && msg.Mtin < *s.LogLevelMin {
		return false
	}
	if s.Ecu != "" && msg.Ecu != s.Ecu {
		return false
	}
	if s.Apid != "" && msg.Apid != s.Apid {
		return false
	}
	if s.Ctid != "" && msg.Ctid != s.Ctid {
		return false
	}
	if s.Verbose != nil && msg.Verbose != *s.Verbose {
		return false
	}
	switch {
	case f.payloadRegex != nil:
		if !f.payloadRegex.MatchString(msg.Payload) {
			return false
		}
	case s.Payload != "" && s.IgnoreCasePayload:
		if !strings.Contains(strings.ToUpper(msg.Payload), f.payloadUpper) {
			return false
		}
	case s.Payload != "":
		if !strings.Contains(msg.Payload, s.Payload) {
			return false
		}
	}
	// an empty lifecycle list matches everything, messages without a
	// lifecycle never match a non-empty list
	if len(s.Lifecycles) > 0 {
		if msg.Lifecycle == "" || !slices.Contains(s.Lifecycles, msg.Lifecycle) {
			return false
		}
	}
	return true
}

// CaptureRegex returns the payload regex when it declares named groups.
func (f *Filter) CaptureRegex() *regexp.Regexp {
	if f.payloadRegex == nil {
		return nil
	}
	for _, name := range f.payloadRegex.SubexpNames() {
		if name != "" {
			return f.payloadRegex
		}
	}
	return nil
}

// String describes the filter the way it is shown in logs and reports.
func (f *Filter) String() string {
	s := &f.spec
	var b strings.Builder
	if !f.enabled {
		b.WriteString("disabled: ")
	}
	if s.Name != "" {
		b.WriteString(s.Name)
		b.WriteByte(' ')
	}
	if s.Not {
		b.WriteByte('!')
	}
	if f.mstp != nil && *f.mstp >= 0 && *f.mstp < len(mstpNames) {
		b.WriteString(mstpNames[*f.mstp] + " ")
	}
	if s.LogLevelMin != nil && *s.LogLevelMin > 0 && *s.LogLevelMin < len(logLevelNames) {
		b.WriteString(">=" + logLevelNames[*s.LogLevelMin] + " ")
	}
	if s.LogLevelMax != nil && *s.LogLevelMax > 0 && *s.LogLevelMax < len(logLevelNames) {
		b.WriteString("<=" + logLevelNames[*s.LogLevelMax] + " ")
	}
	if s.Ecu != "" {
		b.WriteString("ECU:" + s.Ecu + " ")
	}
	if s.Apid != "" {
		b.WriteString("APID:" + s.Apid + " ")
	}
	if s.Ctid != "" {
		b.WriteString("CTID:" + s.Ctid + " ")
	}
	if s.Verbose != nil {
		if *s.Verbose {
			b.WriteString("VERB ")
		} else {
			b.WriteString("NON-VERB ")
		}
	}
	ignoring := ""
	if s.IgnoreCasePayload {
		ignoring = "ignoring case "
	}
	switch {
	case s.PayloadRegex != "":
		fmt.Fprintf(&b, "payload matches %s'%s' ", ignoring, s.PayloadRegex)
	case s.Payload != "":
		fmt.Fprintf(&b, "payload contains %s'%s' ", ignoring, s.Payload)
	}
	if len(s.Lifecycles) > 0 {
		fmt.Fprintf(&b, "in %d LCs", len(s.Lifecycles))
	}
	return strings.TrimSpace(b.String())
}
