// Package harness provides conformance testing for sequence definitions.
//
// The harness loads a sequence, feeds it a scripted message stream, stores
// the run and evaluates assertions against both the in-memory result and
// the stored rows.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sequence:                 # inline sequence, or
//	  name: boot
//	  steps:
//	    - filter: { apid: SYS, payload: "start" }
//	    - filter: { apid: SYS, payload: "ready" }
//	spec: specs/boot.cue      # spec file relative to the scenario
//	sequence_name: boot       # required when the spec file holds several
//	messages:
//	  - { apid: SYS, ctid: MAIN, payload: "start" }
//	  - { apid: SYS, ctid: MAIN, payload: "ready" }
//	assertions:
//	  - type: status_sequence
//	    statuses: [ok]
//	  - type: final_state
//	    table: occurrences
//	    where: { instance: 1 }
//	    expect: { status: "ok" }
//
// Messages without index or reception time are stamped by the harness:
// indexes count from 1, reception starts at 1000 ms and advances 100 ms per
// message, and the device timestamp is the reception time in 0.1 ms units.
//
// A scenario may instead expect the sequence to be rejected:
//
//	expect_build_error: E107
//
// # Assertion Types
//
//   - occurrence_count: exact number of occurrences
//   - status_sequence: statuses of all occurrences, in creation order
//   - occurrence_status: status of one occurrence
//   - failure_contains: one occurrence has a failure containing text
//   - context_value: captured context value of one occurrence
//   - kpi_value: formatted KPI of one occurrence
//   - step_via: the alternative an alternation step matched through
//   - log_contains: a processing log line contains text
//   - final_state: queries a stored table and verifies expected values
package harness
