package ir

// SequenceSpec is the declarative description of a temporal message pattern.
// It is produced by the compiler and never mutated afterwards.
type SequenceSpec struct {
	Name     string     `json:"name" yaml:"name"`
	Steps    []StepSpec `json:"steps" yaml:"steps"`
	Failures Failures   `json:"failures,omitempty" yaml:"failures,omitempty"`
	KPIs     []KPISpec  `json:"kpis,omitempty" yaml:"kpis,omitempty"`
}

// StepSpec is one node of a sequence.
// Exactly one of Filter, Sequence, Alt and Par must be set.
type StepSpec struct {
	Name             string        `json:"name,omitempty" yaml:"name,omitempty"`
	Card             string        `json:"card,omitempty" yaml:"card,omitempty"`
	CanStartNew      *bool         `json:"canCreateNew,omitempty" yaml:"canCreateNew,omitempty"`
	IgnoreOutOfOrder bool          `json:"ignoreOutOfOrder,omitempty" yaml:"ignoreOutOfOrder,omitempty"`
	Filter           *FilterSpec   `json:"filter,omitempty" yaml:"filter,omitempty"`
	Sequence         *SequenceSpec `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Alt              []StepSpec    `json:"alt,omitempty" yaml:"alt,omitempty"`
	Par              []StepSpec    `json:"par,omitempty" yaml:"par,omitempty"`
}

// StepKind identifies which of the step variants a StepSpec describes.
type StepKind string

const (
	StepKindFilter   StepKind = "filter"
	StepKindSequence StepKind = "sequence"
	StepKindAlt      StepKind = "alt"
	StepKindPar      StepKind = "par"
)

// Kinds returns every step kind that is set on the spec, in declaration order.
// A well-formed step has exactly one.
func (s StepSpec) Kinds() []StepKind {
	var kinds []StepKind
	if s.Filter != nil {
		kinds = append(kinds, StepKindFilter)
	}
	if s.Sequence != nil {
		kinds = append(kinds, StepKindSequence)
	}
	if s.Alt != nil {
		kinds = append(kinds, StepKindAlt)
	}
	if s.Par != nil {
		kinds = append(kinds, StepKindPar)
	}
	return kinds
}

// StartsNew reports whether the step may originate a new occurrence.
// Unset means true.
func (s StepSpec) StartsNew() bool {
	return s.CanStartNew == nil || *s.CanStartNew
}

// FilterSpec describes a single-message predicate.
// Unset fields do not constrain the match.
type FilterSpec struct {
	Name              string   `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled           *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Not               bool     `json:"not,omitempty" yaml:"not,omitempty"`
	Mstp              *int     `json:"mstp,omitempty" yaml:"mstp,omitempty"`
	Ecu               string   `json:"ecu,omitempty" yaml:"ecu,omitempty"`
	Apid              string   `json:"apid,omitempty" yaml:"apid,omitempty"`
	Ctid              string   `json:"ctid,omitempty" yaml:"ctid,omitempty"`
	LogLevelMin       *int     `json:"logLevelMin,omitempty" yaml:"logLevelMin,omitempty"`
	LogLevelMax       *int     `json:"logLevelMax,omitempty" yaml:"logLevelMax,omitempty"`
	Verbose           *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Payload           string   `json:"payload,omitempty" yaml:"payload,omitempty"`
	PayloadRegex      string   `json:"payloadRegex,omitempty" yaml:"payloadRegex,omitempty"`
	IgnoreCasePayload bool     `json:"ignoreCasePayload,omitempty" yaml:"ignoreCasePayload,omitempty"`
	Lifecycles        []string `json:"lifecycles,omitempty" yaml:"lifecycles,omitempty"`
}

// KPISpec names a metric derived from the first messages satisfying two
// top-level steps. Start and End are 1-based step ordinals, 0 when unset.
type KPISpec struct {
	Name  string `json:"name" yaml:"name"`
	Start int    `json:"start,omitempty" yaml:"start,omitempty"`
	End   int    `json:"end,omitempty" yaml:"end,omitempty"`
}
