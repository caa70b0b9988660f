// Package target describes the SQL dialects a resolved module can be lowered
// to and checks a module against the features a dialect lacks.
//
// A dialect is selected by name (`sql.postgres`, `sql.sqlite`, ...), either
// from the query header (`prql target:sql.sqlite`) or from configuration.
// Lowering itself happens outside this module; the descriptor is the
// contract the lowering step consumes.
//
// PORTABILITY:
//
// Validate walks the resolved IR and reports constructs the selected dialect
// cannot express directly:
//   - full joins (SQLite, MySQL)
//   - interval literals (SQLite)
//   - regular expression matching (SQLite, MSSQL)
//   - s-strings, which are emitted verbatim and cannot be checked
//
// Non-portable modules still compile. Warnings inform the user, they never
// turn into diagnostics.
//
// Validate is a pure function; dialect descriptors are immutable values so
// it can run from any number of goroutines.
package target
