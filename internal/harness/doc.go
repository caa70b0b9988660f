// Package harness runs diagnostic acceptance scenarios.
//
// A scenario is a query, the catalog it reads from and the outcome the
// compiler must produce: either the exact diagnostics or the columns of
// the final frame.
//
// # Scenario Format
//
//	name: forgotten_argument
//	description: "a transform missing its relation is a type mismatch"
//	catalog:
//	  film:
//	    - {name: film_id, type: int}
//	query: |
//	  from db.film
//	  group
//	expect:
//	  diagnostics:
//	    - kind: TypeMismatch
//	      message: "main expected type `relation`, but found type `func transform relation -> relation`"
//	      at: group
//	      help: "Have you forgotten an argument to function std.group?"
//
// A success scenario lists the qualified output columns instead:
//
//	expect:
//	  columns: [employees.country, n]
//	  warnings: []
//
// `at` names the source text whose first occurrence is the primary span;
// `span` gives it as "L:C-L:C" instead. The query may live in its own file
// through `query_file`, resolved against the scenario's directory.
//
// # Deterministic Runs
//
// Every scenario is compiled through the batch engine as a one-job batch,
// logged to an in-memory SQLite store and read back, using:
//   - a fixed session id (scenario.session or testutil.DefaultSession)
//   - a deterministic logical clock (testutil.DeterministicClock)
//
// The expectations are checked against the logged record, so a scenario
// also proves that diagnostics survive the compile log unchanged.
//
// # Golden Files
//
// RunWithGolden renders the outcome in the stable text form and compares
// it with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
