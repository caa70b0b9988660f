// Package compiler runs one query through resolution, fingerprinting and
// the portability check of its target dialect.
package compiler

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/resolver"
	"github.com/roach88/pql/internal/std"
	"github.com/roach88/pql/internal/syntax"
	"github.com/roach88/pql/internal/target"
)

// Options configure a compilation. The zero value compiles against an
// empty catalog for the default dialect.
type Options struct {
	Catalog *catalog.Catalog
	Std     *std.Library

	// Target is used when the query has no `prql target:` header.
	Target string

	StrictCatalog bool
	IssueTracker  string
	Logger        *slog.Logger
}

// Result is a successful compilation.
type Result struct {
	// ID is the content address of the resolved module.
	ID          string
	Module      *ir.Module
	Frame       *frame.Frame
	Dialect     target.Dialect
	Portability target.Report
}

// Doc renders the result for JSON output.
func (r *Result) Doc() map[string]any {
	cols := make([]any, 0, len(r.Frame.Columns))
	for _, c := range r.Frame.Columns {
		cols = append(cols, c.Qualified())
	}
	return map[string]any{
		"id":          r.ID,
		"target":      r.Dialect.Name,
		"frame":       cols,
		"portability": r.Portability,
		"module":      r.Module.Doc(),
	}
}

// Compile resolves mod. It returns either a result or a non-empty
// diagnostic list.
func Compile(mod *ast.Module, opts Options) (*Result, diagnostic.List) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ropts := resolver.Options{
		Std:           opts.Std,
		StrictCatalog: opts.StrictCatalog,
		IssueTracker:  opts.IssueTracker,
		Logger:        log,
	}
	if opts.Catalog != nil {
		ropts.Catalog = opts.Catalog
	}
	m, diags := resolver.Resolve(mod, ropts)
	if len(diags) > 0 {
		log.Debug("compilation failed", "diagnostics", len(diags))
		return nil, diags
	}

	name := opts.Target
	if m.Target != "" {
		name = m.Target
	}
	dialect, err := target.Lookup(name)
	if err != nil {
		span := ast.Span{}
		if h := mod.Header(); h != nil {
			span = h.Loc
		}
		return nil, diagnostic.List{diagnostic.New(diagnostic.InvalidArgument, span, "%v", err)}
	}

	id, err := ir.Fingerprint(m)
	if err != nil {
		tracker := opts.IssueTracker
		if tracker == "" {
			tracker = resolver.DefaultIssueTracker
		}
		return nil, diagnostic.List{diagnostic.Internal(ast.Span{}, tracker).WithHelp("%v", err)}
	}

	report := target.Validate(m, dialect)
	for _, w := range report.Warnings {
		log.Debug("portability warning", "target", dialect.Name, "warning", w)
	}
	log.Debug("compiled", "id", id, "target", dialect.Name, "frame", m.Main.Lineage.String())

	return &Result{
		ID:          id,
		Module:      m,
		Frame:       m.Main.Lineage,
		Dialect:     dialect,
		Portability: report,
	}, nil
}

// CompileSource parses and compiles query text. The error is a
// *syntax.Error when the text does not parse and a diagnostic.List when
// resolution fails.
func CompileSource(src string, opts Options) (*Result, error) {
	mod, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	res, diags := Compile(mod, opts)
	if len(diags) > 0 {
		return nil, diags
	}
	return res, nil
}

// Diagnostics extracts the resolution diagnostics from a CompileSource
// error. Syntax errors become a single diagnostic at their position.
func Diagnostics(err error) diagnostic.List {
	if list, ok := diagnostic.From(err); ok {
		return list
	}
	var se *syntax.Error
	if errors.As(err, &se) {
		kind := diagnostic.InvalidArgument
		if se.InString {
			kind = diagnostic.InterpolationSyntaxError
		}
		return diagnostic.List{diagnostic.New(kind, ast.Span{Start: se.Pos, End: se.Pos}, "%s", se.Message)}
	}
	if err == nil {
		return nil
	}
	return diagnostic.List{diagnostic.New(diagnostic.InternalCompilerError, ast.Span{}, "%v", err)}
}
