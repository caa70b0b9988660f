// Package ir holds the resolved, typed form of a query.
//
// Every Expr carries an id, a type and a span. Relation-typed expressions
// also carry their lineage frame. The SQL lowering step consumes a Module
// together with a target dialect.
//
// Key design constraints:
//   - NO float values: decimal literals keep their source lexeme
//   - Walk order is deterministic; Named maps are visited by sorted key
//   - Canonical JSON (RFC 8785) is the only input to Fingerprint
package ir
