// Package resolver turns a parsed query module into typed IR.
//
// Expressions and transforms are resolved by two mutually recursive entry
// points, expr and transform, that pass an explicit env (scope plus the
// frame of the relation being transformed). Functions are first-class
// closures: applying one to fewer arguments than it declares yields a new
// closure, and pipeline input is bound as the next positional argument.
//
// Failures are reported as diagnostics. A compilation produces either a
// module or a non-empty diagnostic list, never both.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/scope"
	"github.com/roach88/pql/internal/std"
)

// DefaultIssueTracker is where internal compiler errors point users.
const DefaultIssueTracker = "https://github.com/PRQL/prql/issues/3870"

// Catalog is the source of declared tables.
type Catalog interface {
	Lookup(name string) (*catalog.Table, bool)
	Names() []string
}

// Options configure one resolution.
type Options struct {
	Catalog Catalog
	Std     *std.Library

	// StrictCatalog rejects `db.<name>` when the catalog does not declare
	// the table instead of treating it as a table with unknown columns.
	StrictCatalog bool

	IssueTracker string
	Logger       *slog.Logger
}

// errPoisoned is returned for references to a declaration whose own
// resolution already failed; it never becomes a diagnostic.
var errPoisoned = errors.New("reference to a failed declaration")

// internalError is raised with panic when the resolver reaches a state it
// cannot classify. It is recovered at the group boundary or at the
// statement boundary and reported as an InternalCompilerError.
type internalError struct {
	span   ast.Span
	reason string
}

type resolver struct {
	opts   Options
	lib    *std.Library
	root   *scope.Scope
	db     *scope.Decl
	log    *slog.Logger
	nextID int
	stmt   ast.Span
	tables []ir.Table

	// cols maps column reference ids to the frame column they read.
	cols map[int]frame.Column

	// calling holds the lambdas whose bodies are being resolved.
	calling map[*ast.Func]bool
}

// Resolve resolves a module.
func Resolve(mod *ast.Module, opts Options) (*ir.Module, diagnostic.List) {
	r, err := newResolver(opts)
	if err != nil {
		return nil, diagnostic.List{diagnostic.Internal(ast.Span{}, r.tracker()).WithHelp("%v", err)}
	}

	out := &ir.Module{}
	var (
		diags diagnostic.List
		main  *ast.Main
	)
	for _, stmt := range mod.Stmts {
		switch s := stmt.(type) {
		case *ast.QueryDef:
			out.Target = s.Target
		case *ast.Let:
			collect(&diags, r.boundary(s.Loc, func() error { return r.let(s) }))
		case *ast.Main:
			if main != nil {
				diags.Add(diagnostic.New(diagnostic.InvalidArgument, s.Loc,
					"a query can only have one main pipeline"))
				continue
			}
			main = s
		}
	}

	if main == nil {
		diags.Add(diagnostic.New(diagnostic.NotAPipeline, ast.Span{},
			"expected a pipeline that resolves to a table, but found no main pipeline").
			WithHelp("are you missing a `from` statement?"))
	} else {
		collect(&diags, r.boundary(main.Loc, func() error {
			e, err := r.main(main)
			out.Main = e
			return err
		}))
	}

	if len(diags) > 0 {
		r.log.Debug("resolution failed", "diagnostics", len(diags))
		return nil, diags
	}
	out.Tables = r.tables
	r.log.Debug("resolved module", "tables", len(out.Tables), "frame", out.Main.Lineage.String())
	return out, nil
}

func newResolver(opts Options) (*resolver, error) {
	r := &resolver{opts: opts, log: opts.Logger, lib: opts.Std, cols: map[int]frame.Column{}, calling: map[*ast.Func]bool{}}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.lib == nil {
		lib, err := std.Default()
		if err != nil {
			return r, fmt.Errorf("loading std: %w", err)
		}
		r.lib = lib
	}
	r.declareRoot()
	return r, nil
}

func (r *resolver) tracker() string {
	if r.opts.IssueTracker != "" {
		return r.opts.IssueTracker
	}
	return DefaultIssueTracker
}

// declareRoot fills the module scope: std built-ins under `std` and
// unqualified, catalog tables under `db` and unqualified.
func (r *resolver) declareRoot() {
	r.root = scope.New(nil, "module")
	stdMod := scope.NewModule("std")
	for _, name := range r.lib.Names() {
		fn, _ := r.lib.Lookup(name)
		stdMod.Members.Declare(name, &scope.Decl{Kind: scope.DeclBuiltin, Value: fn})
		r.root.Declare(name, &scope.Decl{Kind: scope.DeclBuiltin, Value: fn})
	}
	r.root.Declare("std", stdMod)

	r.db = scope.NewModule("db")
	if r.opts.Catalog != nil {
		for _, name := range r.opts.Catalog.Names() {
			t, _ := r.opts.Catalog.Lookup(name)
			r.db.Members.Declare(name, &scope.Decl{Kind: scope.DeclTable, Value: t})
			if _, taken := r.root.Local(name); !taken {
				r.root.Declare(name, &scope.Decl{Kind: scope.DeclTable, Value: t})
			}
		}
	}
	r.root.Declare("db", r.db)
}

func (r *resolver) id() int {
	r.nextID++
	return r.nextID
}

func (r *resolver) newExpr(kind ir.Kind, span ast.Span) *ir.Expr {
	return &ir.Expr{ID: r.id(), Kind: kind, Span: span}
}

// boundary runs one statement. Any panic becomes an InternalCompilerError
// spanning the statement.
func (r *resolver) boundary(span ast.Span, fn func() error) (err error) {
	r.stmt = span
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		reason := fmt.Sprint(rec)
		d := diagnostic.Internal(span, r.tracker())
		if ie, ok := rec.(internalError); ok {
			reason = ie.reason
			d.WithLabel(ie.span, "%s", ie.reason)
		}
		r.log.Error("recovered internal error", "span", span.String(), "reason", reason)
		err = d
	}()
	return fn()
}

// let resolves a `let` statement and declares its name. A failed let is
// still declared, poisoned, so later references stay quiet.
func (r *resolver) let(s *ast.Let) error {
	e := &env{scope: r.root}
	v, err := r.expr(e, s.Value)
	if err != nil {
		r.root.Declare(s.Name, &scope.Decl{Kind: scope.DeclLet, Span: s.Loc, Poisoned: true})
		return err
	}
	if v.fn != nil {
		fn := v.fn.withName(s.Name)
		r.root.Declare(s.Name, &scope.Decl{Kind: scope.DeclFunc, Span: s.Loc, Value: &value{fn: fn}})
		r.log.Debug("declared function", "name", s.Name, "type", fn.Type().String())
		return nil
	}
	if v.expr.Lineage != nil {
		x := *v.expr
		x.Lineage = v.expr.Lineage.Rename(s.Name, x.ID)
		r.tables = append(r.tables, ir.Table{Name: s.Name, Expr: &x})
		v = &value{expr: &x}
	}
	r.root.Declare(s.Name, &scope.Decl{Kind: scope.DeclLet, Span: s.Loc, Value: v})
	r.log.Debug("declared let", "name", s.Name, "type", v.expr.Type.String())
	return nil
}

func (r *resolver) main(m *ast.Main) (*ir.Expr, error) {
	v, err := r.expr(&env{scope: r.root}, m.Value)
	if err != nil {
		return nil, err
	}
	return r.expectRelation(v, "main", tailSpan(m.Value))
}

// tailSpan is the span of the last step of a pipeline.
func tailSpan(node ast.Expr) ast.Span {
	if p, ok := node.(*ast.Pipeline); ok && len(p.Exprs) > 0 {
		return p.Exprs[len(p.Exprs)-1].Span()
	}
	return node.Span()
}

// collect appends the diagnostics carried by err to list.
func collect(list *diagnostic.List, err error) {
	if err == nil || errors.Is(err, errPoisoned) {
		return
	}
	var l diagnostic.List
	if errors.As(err, &l) {
		list.Add(l...)
		return
	}
	var d *diagnostic.Diagnostic
	if errors.As(err, &d) {
		list.Add(d)
		return
	}
	list.Add(diagnostic.New(diagnostic.InternalCompilerError, ast.Span{}, "%v", err))
}

// joinErrors folds sibling errors into one error value. Poison alone
// yields errPoisoned.
func joinErrors(errs []error) error {
	var list diagnostic.List
	poisoned := false
	for _, err := range errs {
		if errors.Is(err, errPoisoned) {
			poisoned = true
			continue
		}
		collect(&list, err)
	}
	switch {
	case len(list) == 1:
		return list[0]
	case len(list) > 1:
		return list
	case poisoned:
		return errPoisoned
	}
	return nil
}
