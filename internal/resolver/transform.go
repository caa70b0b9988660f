package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/types"
)

var relationType = types.Relation

// transformCall is a fully applied transform whose relation arguments are
// resolved.
type transformCall struct {
	cl    *closure
	span  ast.Span
	rels  map[string]*ir.Expr
	input *ir.Expr // the `rel` argument, when the transform has one
}

// arg returns the positional argument bound to the named param.
func (t *transformCall) arg(name string) (arg, int) {
	for i, p := range t.cl.params {
		if p.name == name {
			return t.cl.args[i], i
		}
	}
	panic(internalError{span: t.span, reason: fmt.Sprintf("%s has no param %s", t.cl.name, name)})
}

func (t *transformCall) frame() *frame.Frame {
	return t.input.Lineage
}

type transformHandler func(r *resolver, t *transformCall) (*ir.Expr, error)

var transformHandlers map[ir.TransformKind]transformHandler

func init() {
	transformHandlers = map[ir.TransformKind]transformHandler{
		ir.TransformFrom:      (*resolver).from,
		ir.TransformSelect:    (*resolver).selectColumns,
		ir.TransformFilter:    (*resolver).filter,
		ir.TransformDerive:    (*resolver).derive,
		ir.TransformAggregate: (*resolver).aggregate,
		ir.TransformSort:      (*resolver).sortRows,
		ir.TransformTake:      (*resolver).take,
		ir.TransformJoin:      (*resolver).join,
		ir.TransformGroup:     (*resolver).group,
		ir.TransformWindow:    (*resolver).window,
		ir.TransformAppend:    (*resolver).appendRows,
	}
}

// transform resolves the relation arguments of a fully applied transform
// and dispatches to its handler.
func (r *resolver) transform(cl *closure, span ast.Span) (*ir.Expr, error) {
	kind, ok := ir.TransformByName(cl.std.Name)
	if !ok {
		panic(internalError{span: span, reason: "no handler for " + cl.std.FullName()})
	}
	t := &transformCall{cl: cl, span: span, rels: map[string]*ir.Expr{}}
	var errs []error
	for i, p := range cl.params {
		if !p.typ.IsRelation() {
			continue
		}
		x, err := r.relationArg(cl, p, cl.args[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.rels[p.name] = x
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	t.input = t.rels["rel"]
	return transformHandlers[kind](r, t)
}

func (r *resolver) relationArg(cl *closure, p param, a arg) (*ir.Expr, error) {
	v, err := r.argValue(a)
	if err != nil {
		return nil, err
	}
	if v.fn != nil {
		return nil, notAPipeline(a.span, v.fn.describe())
	}
	x, ok := r.asRelation(v.expr)
	if !ok {
		return nil, mismatch(fmt.Sprintf("function %s, param `%s`", cl.std.FullName(), p.name), relationType, v.expr.Type, a.span)
	}
	return x, nil
}

func (r *resolver) output(t *transformCall, k ir.Transform, lineage *frame.Frame) *ir.Expr {
	x := r.newExpr(k, t.span)
	x.Lineage = lineage
	x.Type = lineage.Type()
	return x
}

func (r *resolver) scalarIn(a arg, f *frame.Frame) (*ir.Expr, error) {
	if a.val != nil {
		if a.val.fn != nil {
			return nil, missingArgument(a.val.fn, a.val.fn.remaining(), a.span)
		}
		return a.val.expr, nil
	}
	return r.scalar(a.env.withFrame(f), a.node)
}

// items splits a column-list argument: `{a, b}` lists its fields, any
// other expression is a single column.
func items(node ast.Expr) []ast.Expr {
	if tup, ok := node.(*ast.Tuple); ok && tup.AliasName() == "" {
		return tup.Fields
	}
	return []ast.Expr{node}
}

// columnList resolves a column-list argument against f.
func (r *resolver) columnList(t *transformCall, name string, f *frame.Frame) ([]*ir.Expr, error) {
	a, _ := t.arg(name)
	if a.val != nil {
		return nil, mismatch(fmt.Sprintf("function %s, param `%s`", t.cl.std.FullName(), name), types.AnyTuple, a.val.exprType(), a.span)
	}
	return r.fields(a.env.withFrame(f), items(a.node))
}

// columnFor is the frame column a resolved expression contributes. A bare
// column reference keeps its lineage record.
func (r *resolver) columnFor(x *ir.Expr) frame.Column {
	if _, ok := x.Kind.(ir.ColumnRef); ok && x.Alias == "" {
		if c, ok := r.cols[x.ID]; ok {
			return c
		}
	}
	return frame.Column{Name: fieldName(x), Target: x.ID, Type: x.Type}
}

func (r *resolver) from(t *transformCall) (*ir.Expr, error) {
	src := t.rels["source"]
	return r.output(t, ir.Transform{Kind: ir.TransformFrom, Input: src}, src.Lineage), nil
}

func (r *resolver) selectColumns(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	xs, err := r.columnList(t, "columns", f)
	if err != nil {
		return nil, err
	}
	base := f
	var cols []frame.Column
	for _, x := range xs {
		all, ok := x.Kind.(ir.All)
		if !ok {
			cols = append(cols, r.columnFor(x))
			continue
		}
		switch {
		case all.Input == "" && x.Alias != "":
			base = f.Rename(x.Alias, x.ID)
			cols = append(cols, base.Columns...)
		case all.Input == "":
			cols = append(cols, f.Columns...)
		default:
			for _, c := range f.InputColumns(all.Input) {
				if x.Alias != "" {
					c.Input = x.Alias
				}
				cols = append(cols, c)
			}
		}
	}
	return r.output(t, ir.Transform{Kind: ir.TransformSelect, Input: t.input, Args: xs}, base.Project(cols)), nil
}

// computedColumns resolves the columns of derive and aggregate, which
// cannot take whole-row references.
func (r *resolver) computedColumns(t *transformCall, f *frame.Frame) ([]*ir.Expr, []frame.Column, error) {
	xs, err := r.columnList(t, "columns", f)
	if err != nil {
		return nil, nil, err
	}
	cols := make([]frame.Column, 0, len(xs))
	for _, x := range xs {
		if _, ok := x.Kind.(ir.All); ok {
			return nil, nil, diagnostic.New(diagnostic.InvalidArgument, x.Span,
				"function %s expected columns, but found a whole row", t.cl.std.FullName()).
				WithHelp("use `select` to keep every column")
		}
		cols = append(cols, r.columnFor(x))
	}
	return xs, cols, nil
}

func (r *resolver) derive(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	xs, cols, err := r.computedColumns(t, f)
	if err != nil {
		return nil, err
	}
	return r.output(t, ir.Transform{Kind: ir.TransformDerive, Input: t.input, Args: xs}, f.Extend(cols)), nil
}

func (r *resolver) aggregate(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	xs, cols, err := r.computedColumns(t, f)
	if err != nil {
		return nil, err
	}
	return r.output(t, ir.Transform{Kind: ir.TransformAggregate, Input: t.input, Args: xs}, f.Project(cols)), nil
}

func (r *resolver) filter(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	a, _ := t.arg("condition")
	cond, err := r.scalarIn(a, f)
	if err != nil {
		return nil, err
	}
	if err := checkArg(t.cl.std, "condition", types.Bool, cond); err != nil {
		return nil, err
	}
	return r.output(t, ir.Transform{Kind: ir.TransformFilter, Input: t.input, Args: []*ir.Expr{cond}}, f), nil
}

func (r *resolver) sortRows(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	a, _ := t.arg("by")
	if a.val != nil {
		return nil, mismatch("function std.sort, param `by`", types.AnyTuple, a.val.exprType(), a.span)
	}
	e := a.env.withFrame(f)
	var (
		keys []ir.SortKey
		errs []error
	)
	for _, n := range items(a.node) {
		desc := false
		if u, ok := n.(*ast.Unary); ok && (u.Op == "-" || u.Op == "+") {
			desc = u.Op == "-"
			n = u.Operand
		}
		x, err := r.scalar(e, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keys = append(keys, ir.SortKey{Expr: x, Desc: desc})
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return r.output(t, ir.Transform{Kind: ir.TransformSort, Input: t.input, Sort: keys}, f), nil
}

func (r *resolver) take(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	a, idx := t.arg("expr")
	x, err := r.scalarIn(a, f)
	if err != nil {
		return nil, err
	}
	if err := checkArg(t.cl.std, "expr", t.cl.params[idx].typ, x); err != nil {
		return nil, err
	}
	return r.output(t, ir.Transform{Kind: ir.TransformTake, Input: t.input, Args: []*ir.Expr{x}}, f), nil
}

func (r *resolver) join(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	with := t.rels["with"]

	p, _ := t.cl.namedParam("side")
	side := p.def
	if a, ok := t.cl.namedArgs["side"]; ok {
		word, ok := bareWord(a.node)
		if !ok || !slices.Contains(p.oneOf, word) {
			return nil, diagnostic.New(diagnostic.InvalidArgument, a.span,
				"`side` expected one of %s, but found `%s`", strings.Join(p.oneOf, ", "), ast.PrintValue(a.node))
		}
		side = word
	}

	wa, _ := t.arg("with")
	for _, in := range with.Lineage.Inputs {
		if f.HasInput(in.Name) {
			return nil, diagnostic.New(diagnostic.InvalidArgument, wa.span,
				"cannot join `%s`: the name is already used by an input of the relation", in.Name).
				WithHelp("give the joined relation its own name, for example `%s_2 = ...`", in.Name)
		}
	}

	joined := frame.Join(f, with.Lineage)
	a, _ := t.arg("condition")
	if a.val != nil {
		return nil, mismatch("function std.join, param `condition`", types.Bool, a.val.exprType(), a.span)
	}
	ce := &env{scope: a.env.scope, frame: joined, left: f, that: with.Lineage, inJoin: true}
	cond, err := r.scalar(ce, a.node)
	if err != nil {
		return nil, err
	}
	if err := checkArg(t.cl.std, "condition", types.Bool, cond); err != nil {
		return nil, err
	}
	k := ir.Transform{Kind: ir.TransformJoin, Input: t.input, With: with, Side: side, Args: []*ir.Expr{cond}}
	return r.output(t, k, joined), nil
}

func bareWord(n ast.Expr) (string, bool) {
	switch v := n.(type) {
	case *ast.Ident:
		if len(v.Path) == 1 {
			return v.Path[0], true
		}
	case *ast.Literal:
		if v.Kind == ast.LitString {
			return v.Value, true
		}
	}
	return "", false
}

func (r *resolver) group(t *transformCall) (*ir.Expr, error) {
	return r.groupBoundary(t.span, func() (*ir.Expr, error) {
		f := t.frame()
		keys, err := r.columnList(t, "by", f)
		if err != nil {
			return nil, err
		}
		keyCols := make([]frame.Column, 0, len(keys))
		for _, k := range keys {
			c := r.columnFor(k)
			if !f.Partitions(c) {
				panic(internalError{
					span:   k.Span,
					reason: fmt.Sprintf("cannot classify group key `%s`: it holds sub-rows of an input the enclosing group is not keyed by", c.Qualified()),
				})
			}
			if c.Grouped {
				// one value per nested group
				k.Type = c.Type
				if k.Type == nil {
					k.Type = types.Unknown
				}
			}
			keyCols = append(keyCols, c)
		}
		inner := f.Group(keyCols)
		rows := r.newExpr(ir.GroupRows{}, t.span)
		rows.Lineage = inner
		rows.Type = inner.Type()

		_, idx := t.arg("pipeline")
		body, err := r.applyPipelineArg(t.cl, idx, rows)
		if err != nil {
			return nil, err
		}
		k := ir.Transform{Kind: ir.TransformGroup, Input: t.input, By: keys, Body: body}
		return r.output(t, k, frame.Fold(keyCols, body.Lineage)), nil
	})
}

// groupBoundary converts an internal error raised while resolving a group
// into one InternalCompilerError for the enclosing statement.
func (r *resolver) groupBoundary(span ast.Span, fn func() (*ir.Expr, error)) (out *ir.Expr, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		ie, ok := rec.(internalError)
		if !ok {
			panic(rec)
		}
		r.log.Error("recovered internal error in group", "span", ie.span.String(), "reason", ie.reason)
		out = nil
		err = diagnostic.Internal(r.stmt, r.tracker()).
			WithLabel(span, "while resolving this group").
			WithLabel(ie.span, "%s", ie.reason)
	}()
	return fn()
}

func (r *resolver) window(t *transformCall) (*ir.Expr, error) {
	f := t.frame()
	named := map[string]*ir.Expr{}
	var errs []error
	for _, p := range t.cl.named {
		a, ok := t.cl.namedArgs[p.name]
		if !ok {
			continue
		}
		x, err := r.scalarIn(a, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := checkArg(t.cl.std, p.name, p.typ, x); err != nil {
			errs = append(errs, err)
			continue
		}
		named[p.name] = x
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	rows := r.newExpr(ir.GroupRows{}, t.span)
	rows.Lineage = f
	rows.Type = f.Type()

	_, idx := t.arg("pipeline")
	body, err := r.applyPipelineArg(t.cl, idx, rows)
	if err != nil {
		return nil, err
	}
	k := ir.Transform{Kind: ir.TransformWindow, Input: t.input, Body: body, Named: named}
	return r.output(t, k, body.Lineage), nil
}

func (r *resolver) appendRows(t *transformCall) (*ir.Expr, error) {
	top, bottom := t.rels["top"], t.rels["bottom"]
	tf, bf := top.Lineage, bottom.Lineage
	if !tf.IsOpen() && !bf.IsOpen() && len(tf.Columns) != len(bf.Columns) {
		a, _ := t.arg("bottom")
		return nil, diagnostic.New(diagnostic.TypeMismatch, a.span,
			"function std.append, param `bottom` expected %d columns, but found %d", len(tf.Columns), len(bf.Columns)).
			WithNote(types.RelationNote)
	}
	return r.output(t, ir.Transform{Kind: ir.TransformAppend, Input: top, With: bottom}, tf), nil
}

// applyPipelineArg applies the pipeline bound to param idx of cl to start.
// The pipeline must end in a relation; a transform left waiting for an
// argument is a MissingArgument.
func (r *resolver) applyPipelineArg(cl *closure, idx int, start *ir.Expr) (*ir.Expr, error) {
	a := cl.args[idx]
	what := fmt.Sprintf("function %s, param `%s`", cl.std.FullName(), cl.params[idx].name)
	cur := &value{expr: start}

	if a.val != nil {
		if a.val.fn == nil {
			return nil, mismatch(what, types.Transform, a.val.exprType(), a.span)
		}
		v, err := r.apply(a.val.fn, []arg{{val: cur, span: start.Span}}, a.span)
		if err != nil {
			return nil, err
		}
		cur = v
	} else {
		steps := []ast.Expr{a.node}
		if p, ok := a.node.(*ast.Pipeline); ok {
			steps = p.Exprs
		}
		for _, step := range steps {
			sv, err := r.expr(a.env, step)
			if err != nil {
				return nil, err
			}
			if sv.fn == nil {
				return nil, notAFunction(sv.expr, step.Span())
			}
			cur, err = r.apply(sv.fn, []arg{{val: cur, span: start.Span}}, step.Span())
			if err != nil {
				return nil, err
			}
		}
	}

	if c := cur.fn; c != nil {
		unfilled := c.remaining()
		if c.piped >= 0 && !c.params[c.piped].typ.IsRelation() {
			unfilled = []param{c.params[c.piped]}
		}
		return nil, missingArgument(c, unfilled, a.span)
	}
	if !cur.expr.Type.IsRelation() || cur.expr.Lineage == nil {
		return nil, mismatch(what, types.Transform, cur.expr.Type, a.span)
	}
	return cur.expr, nil
}
