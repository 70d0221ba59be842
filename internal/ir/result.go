package ir

// Status is the classification of an occurrence or a single step result.
type Status string

const (
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusUndefined Status = "undefined"
	StatusError     Status = "error"
)

// Event types found in result trees.
const (
	EventStep     = "step"
	EventSequence = "sequence"
	EventMissing  = "missing"
)

// SequenceResult is the public result of one checker run.
type SequenceResult struct {
	Sequence    string             `json:"sequence"`
	SpecHash    string             `json:"spec_hash,omitempty"`
	Occurrences []OccurrenceResult `json:"occurrences"`
	Logs        []string           `json:"logs,omitempty"`
}

// Counts returns the number of occurrences per status.
func (r *SequenceResult) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, occ := range r.Occurrences {
		counts[occ.Status]++
	}
	return counts
}

// OccurrenceResult is a snapshot of one occurrence, open or closed.
type OccurrenceResult struct {
	Instance int           `json:"instance"`
	Start    Event         `json:"start"`
	Status   Status        `json:"status"`
	Failures []string      `json:"failures,omitempty"`
	Steps    []StepResult  `json:"steps"`
	Context  []ContextPair `json:"context,omitempty"`
	KPIs     []KPIValue    `json:"kpis,omitempty"`
}

// ContextValue returns the captured value for key.
func (o *OccurrenceResult) ContextValue(key string) (string, bool) {
	for _, p := range o.Context {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// KPIValue returns the formatted KPI named name.
func (o *OccurrenceResult) KPIValue(name string) (string, bool) {
	for _, k := range o.KPIs {
		if k.Name == name {
			return k.Value, true
		}
	}
	return "", false
}

// StepResult holds the results of one declared step inside an occurrence.
// Leaf steps fill Events; composite steps list child occurrences and
// parallel steps list rounds in Occurrences.
type StepResult struct {
	// Key is the stable step path, e.g. "1", "2.1", "3.a1", "4.p2".
	Key         string             `json:"key"`
	Name        string             `json:"name,omitempty"`
	Via         string             `json:"via,omitempty"`
	Events      []Event            `json:"events,omitempty"`
	Occurrences []OccurrenceResult `json:"occurrences,omitempty"`
}

// Event is a single matched (or synthetic) entry of a result tree.
type Event struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	TimeMs    int64  `json:"time_ms"`
	TimeStamp int64  `json:"timestamp"`
	Lifecycle string `json:"lifecycle,omitempty"`
	Summary   Status `json:"summary"`
	MsgIndex  int64  `json:"msg_index"`
	MsgText   string `json:"msg_text,omitempty"`
}

// ContextPair is one captured context value.
type ContextPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// KPIValue is one computed KPI, already formatted.
type KPIValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
