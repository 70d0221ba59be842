package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seqcheck/internal/compiler"
	"github.com/roach88/seqcheck/internal/ir"
)

// Scenario defines a conformance test scenario: one sequence, one message
// stream and the assertions that must hold on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is the path to a spec file. Relative paths are resolved against
	// the scenario file location by LoadScenario.
	Spec string `yaml:"spec,omitempty"`

	// SequenceName picks a sequence when Spec holds more than one.
	SequenceName string `yaml:"sequence_name,omitempty"`

	// Sequence is an inline definition, used instead of Spec.
	Sequence *ir.SequenceSpec `yaml:"sequence,omitempty"`

	// Messages is the stream fed to the checker, in order.
	Messages []ir.Message `yaml:"messages"`

	// ExpectBuildError is a validation code (e.g. "E107") the sequence must
	// be rejected with. Messages and assertions are not evaluated then.
	ExpectBuildError string `yaml:"expect_build_error,omitempty"`

	// Assertions validate the result and the stored run.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is the stored run id. Defaults to "run-" + Name.
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates the checker result or the stored run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of occurrences (occurrence_count).
	Count int `yaml:"count,omitempty"`

	// Statuses lists every occurrence status in order (status_sequence).
	Statuses []string `yaml:"statuses,omitempty"`

	// Instance selects the occurrence, 1-based.
	Instance int `yaml:"instance,omitempty"`

	// Status is the expected status (occurrence_status).
	Status string `yaml:"status,omitempty"`

	// Text is a substring to look for (failure_contains, log_contains).
	Text string `yaml:"text,omitempty"`

	// Key names the context key or KPI (context_value, kpi_value).
	Key string `yaml:"key,omitempty"`

	// Step is the step key, e.g. "2" or "3.1" (step_via).
	Step string `yaml:"step,omitempty"`

	// Value is the expected value (context_value, kpi_value, step_via).
	Value string `yaml:"value,omitempty"`

	// Table is the stored table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertOccurrenceCount  = "occurrence_count"
	AssertStatusSequence   = "status_sequence"
	AssertOccurrenceStatus = "occurrence_status"
	AssertFailureContains  = "failure_contains"
	AssertContextValue     = "context_value"
	AssertKPIValue         = "kpi_value"
	AssertStepVia          = "step_via"
	AssertLogContains      = "log_contains"
	AssertFinalState       = "final_state"
)

var validStatuses = map[string]bool{
	string(ir.StatusOK):        true,
	string(ir.StatusWarning):   true,
	string(ir.StatusUndefined): true,
	string(ir.StatusError):     true,
}

// LoadScenario reads and parses a scenario YAML file. A relative spec path
// is resolved against the directory of the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the spec path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) && basePath != "" {
		scenario.Spec = filepath.Join(basePath, scenario.Spec)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// resolveSequence returns the inline sequence or loads it from Spec.
func (s *Scenario) resolveSequence() (*ir.SequenceSpec, error) {
	if s.Sequence != nil {
		return s.Sequence, nil
	}

	specs, err := compiler.LoadFile(s.Spec)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Spec, err)
	}
	if s.SequenceName == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("%s holds %d sequences, sequence_name is required", s.Spec, len(specs))
		}
		return &specs[0], nil
	}
	for i := range specs {
		if specs[i].Name == s.SequenceName {
			return &specs[i], nil
		}
	}
	return nil, fmt.Errorf("sequence %q not found in %s", s.SequenceName, s.Spec)
}

func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return "run-" + s.Name
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Sequence == nil && s.Spec == "":
		return fmt.Errorf("one of sequence or spec is required")
	case s.Sequence != nil && s.Spec != "":
		return fmt.Errorf("sequence and spec are mutually exclusive")
	case s.Sequence != nil && s.SequenceName != "":
		return fmt.Errorf("sequence_name only applies to spec")
	}

	if s.Spec != "" {
		if _, err := os.Stat(s.Spec); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", s.Spec)
		}
	}

	if s.ExpectBuildError != "" {
		return nil
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsInstance := func() error {
		if a.Instance < 1 {
			return fmt.Errorf("assertions[%d]: instance is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertOccurrenceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for occurrence_count", index)
		}
	case AssertStatusSequence:
		for _, s := range a.Statuses {
			if !validStatuses[s] {
				return fmt.Errorf("assertions[%d]: unknown status %q", index, s)
			}
		}
	case AssertOccurrenceStatus:
		if err := needsInstance(); err != nil {
			return err
		}
		if !validStatuses[a.Status] {
			return fmt.Errorf("assertions[%d]: unknown status %q", index, a.Status)
		}
	case AssertFailureContains:
		if err := needsInstance(); err != nil {
			return err
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for failure_contains", index)
		}
	case AssertContextValue, AssertKPIValue:
		if err := needsInstance(); err != nil {
			return err
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertStepVia:
		if err := needsInstance(); err != nil {
			return err
		}
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for step_via", index)
		}
	case AssertLogContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_contains", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
