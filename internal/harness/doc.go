// Package harness runs step scenarios described in YAML through the engine
// and checks their outcomes.
//
// # Scenario Format
//
// A scenario file holds the step records a feature parser would produce,
// the fixtures to instantiate from the suite's catalog, and the expected
// result:
//
//	name: add_apples
//	feature: basket
//	runtime: sync
//	fixtures: [basket, prices, currency]
//	run_id: run-add-apples
//	steps:
//	  - keyword: Given
//	    text: an empty basket
//	  - keyword: When
//	    text: I add 2 apples
//	  - keyword: Then
//	    text: the total is 1.00 EUR
//	expect:
//	  status: passed
//	assertions:
//	  - type: step_status
//	    step: 1
//	    status: passed
//
// Unknown fields are rejected. Step tables use the table key (a list of
// rows) and doc strings the docstring key.
//
// # Assertions
//
//   - step_status: the step finished with status (or "unexecuted")
//   - error_kind: the step failed with kind, e.g. MISSING_FIXTURES
//   - missing_fixtures: the step reported exactly names as missing
//   - skip_reason: the step was skipped with reason
//   - error_contains: the step's error cause contains text
//
// # Golden Files
//
// RunWithGolden compares the JSON trace of a run with
// testdata/golden/<name>.golden. Traces leave out run IDs, durations and
// definition locations so they stay stable across machines.
package harness
