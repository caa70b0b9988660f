// Package ast defines the parsed query tree consumed by the resolver.
//
// ast imports nothing internal. Text parsing lives elsewhere; this package
// only holds node types, spans, a printer for diagnostics, and a decoder
// for the JSON/YAML tree form that external parsers hand over.
//
// Every expression node carries a Span. Spans are half-open, with 1-based
// lines and columns.
package ast
