package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type        string                // Assertion type for categorization
	Expected    string                // Human-readable expected outcome
	Actual      string                // Human-readable actual outcome
	Occurrences []ir.OccurrenceResult // Occurrences for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Occurrences) > 0 {
		fmt.Fprintf(&buf, "\nOccurrences:\n")
		for _, occ := range e.Occurrences {
			fmt.Fprintf(&buf, "  [%d] %s started at msg #%d", occ.Instance, occ.Status, occ.Start.MsgIndex)
			if len(occ.Failures) > 0 {
				fmt.Fprintf(&buf, " %v", occ.Failures)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides the stored run for final_state assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertOccurrenceCount:
			err = assertOccurrenceCount(result, a)
		case AssertStatusSequence:
			err = assertStatusSequence(result, a)
		case AssertOccurrenceStatus:
			err = assertOccurrenceStatus(result, a)
		case AssertFailureContains:
			err = assertFailureContains(result, a)
		case AssertContextValue:
			err = assertContextValue(result, a)
		case AssertKPIValue:
			err = assertKPIValue(result, a)
		case AssertStepVia:
			err = assertStepVia(result, a)
		case AssertLogContains:
			err = assertLogContains(result, a)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("final_state requires a store")
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, result.RunID, a)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func occurrencesOf(result *Result) []ir.OccurrenceResult {
	if result.Sequence == nil {
		return nil
	}
	return result.Sequence.Occurrences
}

// lookupOccurrence returns the occurrence named by assertion.Instance.
func lookupOccurrence(result *Result, assertion Assertion) (*ir.OccurrenceResult, error) {
	occ, ok := result.Occurrence(assertion.Instance)
	if !ok {
		return nil, &AssertionError{
			Type:        assertion.Type,
			Expected:    fmt.Sprintf("occurrence #%d", assertion.Instance),
			Actual:      fmt.Sprintf("%d occurrences", len(occurrencesOf(result))),
			Occurrences: occurrencesOf(result),
		}
	}
	return occ, nil
}

// assertOccurrenceCount checks the exact number of occurrences.
func assertOccurrenceCount(result *Result, assertion Assertion) error {
	got := len(occurrencesOf(result))
	if got != assertion.Count {
		return &AssertionError{
			Type:        AssertOccurrenceCount,
			Expected:    fmt.Sprintf("%d occurrences", assertion.Count),
			Actual:      fmt.Sprintf("%d occurrences", got),
			Occurrences: occurrencesOf(result),
		}
	}
	return nil
}

// assertStatusSequence checks every occurrence status in order.
func assertStatusSequence(result *Result, assertion Assertion) error {
	got := make([]string, 0, len(occurrencesOf(result)))
	for _, s := range result.Statuses() {
		got = append(got, string(s))
	}
	want := assertion.Statuses
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		return &AssertionError{
			Type:        AssertStatusSequence,
			Expected:    fmt.Sprintf("statuses %v", want),
			Actual:      fmt.Sprintf("statuses %v", got),
			Occurrences: occurrencesOf(result),
		}
	}
	return nil
}

// assertOccurrenceStatus checks the status of one occurrence.
func assertOccurrenceStatus(result *Result, assertion Assertion) error {
	occ, err := lookupOccurrence(result, assertion)
	if err != nil {
		return err
	}
	if string(occ.Status) != assertion.Status {
		return &AssertionError{
			Type:        AssertOccurrenceStatus,
			Expected:    fmt.Sprintf("occurrence #%d %s", assertion.Instance, assertion.Status),
			Actual:      fmt.Sprintf("occurrence #%d %s", assertion.Instance, occ.Status),
			Occurrences: occurrencesOf(result),
		}
	}
	return nil
}

// assertFailureContains checks that some failure of an occurrence contains
// the expected text.
func assertFailureContains(result *Result, assertion Assertion) error {
	occ, err := lookupOccurrence(result, assertion)
	if err != nil {
		return err
	}
	for _, f := range occ.Failures {
		if strings.Contains(f, assertion.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:        AssertFailureContains,
		Expected:    fmt.Sprintf("failure containing %q", assertion.Text),
		Actual:      fmt.Sprintf("failures %q", occ.Failures),
		Occurrences: occurrencesOf(result),
	}
}

// assertContextValue checks one captured context value.
func assertContextValue(result *Result, assertion Assertion) error {
	occ, err := lookupOccurrence(result, assertion)
	if err != nil {
		return err
	}
	got, ok := occ.ContextValue(assertion.Key)
	if !ok || got != assertion.Value {
		actual := "not captured"
		if ok {
			actual = fmt.Sprintf("%s=%q", assertion.Key, got)
		}
		return &AssertionError{
			Type:     AssertContextValue,
			Expected: fmt.Sprintf("%s=%q", assertion.Key, assertion.Value),
			Actual:   actual,
		}
	}
	return nil
}

// assertKPIValue checks one formatted KPI.
func assertKPIValue(result *Result, assertion Assertion) error {
	occ, err := lookupOccurrence(result, assertion)
	if err != nil {
		return err
	}
	got, ok := occ.KPIValue(assertion.Key)
	if !ok || got != assertion.Value {
		actual := "not computed"
		if ok {
			actual = fmt.Sprintf("%s=%s", assertion.Key, got)
		}
		return &AssertionError{
			Type:     AssertKPIValue,
			Expected: fmt.Sprintf("%s=%s", assertion.Key, assertion.Value),
			Actual:   actual,
		}
	}
	return nil
}

// assertStepVia checks which alternative an alternation step matched through.
func assertStepVia(result *Result, assertion Assertion) error {
	occ, err := lookupOccurrence(result, assertion)
	if err != nil {
		return err
	}
	step, ok := findStep(occ.Steps, assertion.Step)
	if !ok {
		return &AssertionError{
			Type:     AssertStepVia,
			Expected: fmt.Sprintf("step #%s", assertion.Step),
			Actual:   "step not found",
		}
	}
	if step.Via != assertion.Value {
		return &AssertionError{
			Type:     AssertStepVia,
			Expected: fmt.Sprintf("step #%s via %q", assertion.Step, assertion.Value),
			Actual:   fmt.Sprintf("step #%s via %q", assertion.Step, step.Via),
		}
	}
	return nil
}

// findStep searches steps and nested child occurrences depth-first.
func findStep(steps []ir.StepResult, key string) (*ir.StepResult, bool) {
	for i := range steps {
		if steps[i].Key == key {
			return &steps[i], true
		}
		for j := range steps[i].Occurrences {
			if s, ok := findStep(steps[i].Occurrences[j].Steps, key); ok {
				return s, true
			}
		}
	}
	return nil, false
}

// assertLogContains checks the processing log.
func assertLogContains(result *Result, assertion Assertion) error {
	var logs []string
	if result.Sequence != nil {
		logs = result.Sequence.Logs
	}
	for _, line := range logs {
		if strings.Contains(line, assertion.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("log line containing %q", assertion.Text),
		Actual:   fmt.Sprintf("%d log lines without it", len(logs)),
	}
}

// assertFinalState checks if a stored table contains expected values.
// Rows are scoped to runID when the table has a run_id column; the runs
// table is scoped by id.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	where := make(map[string]interface{}, len(assertion.Where)+1)
	for k, v := range assertion.Where {
		where[k] = v
	}
	if assertion.Table == "runs" {
		where["id"] = runID
	} else {
		where["run_id"] = runID
	}

	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", assertion.Table, whereSQL)

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// More than one row means the assertion is ambiguous
	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML scalar to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from stored tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	// TEXT columns may scan as []byte
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		if actualInt, ok := actual.(int); ok {
			return exp == actualInt
		}
		return false
	case int64:
		if actualInt, ok := actual.(int64); ok {
			return exp == actualInt
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}
