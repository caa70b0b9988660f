package resolver

import (
	"strings"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/scope"
	"github.com/roach88/pql/internal/std"
	"github.com/roach88/pql/internal/types"
)

// ident resolves an identifier path. Lookup order: `this`/`that` and
// `input.*`, lambda parameters, listed frame columns, module scope (lets,
// tables, built-ins), then columns inferred from wildcard inputs.
func (r *resolver) ident(e *env, id *ast.Ident) (*value, error) {
	path := id.Path
	switch head := path[0]; {
	case head == "this" || head == "that":
		f := e.frame
		if head == "this" && e.inJoin {
			f = e.left
		}
		if head == "that" {
			f = e.that
		}
		if f == nil {
			return nil, r.unknown(e, id)
		}
		if len(path) == 1 {
			return r.all(f, "", id.Loc), nil
		}
		return r.frameColumn(&env{scope: e.scope, frame: f}, path[1:], id)
	case len(path) == 2 && path[1] == "*":
		if e.frame.HasInput(head) {
			return r.all(e.frame, head, id.Loc), nil
		}
		return nil, r.unknown(e, id)
	}

	if d, _, ok := e.scope.Lookup(path[0]); ok && d.Kind == scope.DeclParam {
		if len(path) > 1 {
			return nil, r.unknown(e, id)
		}
		return reference(d.Value.(*value), id.Loc), nil
	}

	if e.frame != nil {
		m := e.frame.Exact(path)
		switch m.Status {
		case frame.Found:
			return &value{expr: r.columnRef(m, id.Loc)}, nil
		case frame.Ambiguous:
			return nil, ambiguous(m, id)
		}
		if len(path) > 1 && e.frame.HasInput(path[0]) {
			return r.frameColumn(e, path, id)
		}
	}

	res, ok := e.scope.Resolve(path)
	if ok {
		return r.declValue(res, id)
	}
	if res.Decl == r.db && len(res.Rest) == 1 && !r.opts.StrictCatalog {
		return &value{expr: r.table(res.Rest[0], id.Name(), nil, id.Loc)}, nil
	}

	if e.frame != nil && len(path) == 1 {
		m := e.frame.Infer(path)
		switch m.Status {
		case frame.Found:
			return &value{expr: r.columnRef(m, id.Loc)}, nil
		case frame.Ambiguous:
			return nil, ambiguous(m, id)
		}
	}
	return nil, r.unknown(e, id)
}

// frameColumn looks path up in the frame only, listed columns first.
func (r *resolver) frameColumn(e *env, path []string, id *ast.Ident) (*value, error) {
	m := e.frame.Exact(path)
	if m.Status == frame.NotFound {
		m = e.frame.Infer(path)
	}
	switch m.Status {
	case frame.Found:
		return &value{expr: r.columnRef(m, id.Loc)}, nil
	case frame.Ambiguous:
		return nil, ambiguous(m, id)
	}
	return nil, r.unknown(e, id)
}

func (r *resolver) declValue(res scope.Result, id *ast.Ident) (*value, error) {
	d := res.Decl
	if d.Poisoned {
		return nil, errPoisoned
	}
	if len(res.Rest) > 0 {
		return nil, r.unknown(nil, id)
	}
	switch d.Kind {
	case scope.DeclLet:
		v := d.Value.(*value)
		if v.expr.Lineage != nil {
			x := r.newExpr(ir.TableRef{Name: d.Name}, id.Loc)
			x.Type = v.expr.Type
			x.Lineage = v.expr.Lineage
			return &value{expr: x}, nil
		}
		return reference(v, id.Loc), nil
	case scope.DeclFunc:
		return d.Value.(*value), nil
	case scope.DeclTable:
		t, _ := d.Value.(*catalog.Table)
		return &value{expr: r.table(d.Name, id.Name(), t, id.Loc)}, nil
	case scope.DeclBuiltin:
		fn := d.Value.(*std.Function)
		return &value{fn: stdClosure(fn)}, nil
	}
	return nil, r.unknown(nil, id)
}

// reference returns a view of v reached through a name at span. The
// first use site is kept so diagnostics can point back at it.
func reference(v *value, span ast.Span) *value {
	if v.fn != nil {
		return v
	}
	x := *v.expr
	if !x.RefSpan.IsValid() {
		x.RefSpan = span
	}
	return &value{expr: &x}
}

// table reads a relation source. A nil table has unknown columns.
func (r *resolver) table(name, written string, t *catalog.Table, span ast.Span) *ir.Expr {
	x := r.newExpr(ir.TableRef{Name: written}, span)
	in := frame.Input{Name: name, Table: written, ID: x.ID}
	if t == nil {
		x.Lineage = frame.Wildcard(in)
	} else {
		cols := make([]frame.Column, 0, len(t.Columns))
		for _, c := range t.Columns {
			typ := c.Type
			if typ == nil {
				typ = types.Unknown
			}
			cols = append(cols, frame.Column{Name: c.Name, Type: typ})
		}
		x.Lineage = frame.Begin(in, cols)
	}
	x.Type = x.Lineage.Type()
	return x
}

func (r *resolver) columnRef(m frame.Match, span ast.Span) *ir.Expr {
	c := m.Column
	x := r.newExpr(ir.ColumnRef{
		Input:    c.Input,
		Name:     c.Name,
		Target:   c.Target,
		Inferred: m.Inferred,
	}, span)
	x.Type = c.Type
	if x.Type == nil {
		x.Type = types.Unknown
	}
	if c.Grouped {
		x.Type = types.Array(x.Type)
	}
	r.cols[x.ID] = c
	return x
}

func (r *resolver) all(f *frame.Frame, input string, span ast.Span) *value {
	x := r.newExpr(ir.All{Input: input}, span)
	x.Type = types.AnyTuple
	if input == "" {
		x.Type = f.Type().Row()
	}
	return &value{expr: x}
}

func (r *resolver) unknown(e *env, id *ast.Ident) *diagnostic.Diagnostic {
	name := id.Name()
	if e != nil && e.frame != nil {
		if s, ok := e.frame.Suggest(id.Path[len(id.Path)-1]); ok {
			return diagnostic.New(diagnostic.UnknownName, id.Loc, "Unknown column `%s`", name).
				WithHelp("did you mean `%s`?", s)
		}
	}
	return diagnostic.New(diagnostic.UnknownName, id.Loc, "Unknown name `%s`", name)
}

func ambiguous(m frame.Match, id *ast.Ident) *diagnostic.Diagnostic {
	return diagnostic.New(diagnostic.AmbiguousName, id.Loc, "Ambiguous name `%s`", id.Name()).
		WithHelp("could be any of: %s", strings.Join(m.Candidates, ", "))
}
