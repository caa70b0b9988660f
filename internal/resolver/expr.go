package resolver

import (
	"fmt"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/std"
	"github.com/roach88/pql/internal/types"
)

var binaryOps = map[string]string{
	"*":  "mul",
	"/":  "div",
	"//": "div_i",
	"%":  "mod",
	"+":  "add",
	"-":  "sub",
	"==": "eq",
	"!=": "ne",
	">":  "gt",
	"<":  "lt",
	">=": "gte",
	"<=": "lte",
	"&&": "and",
	"||": "or",
	"??": "coalesce",
	"~=": "regex_search",
}

// expr resolves node and applies its alias: a relation is requalified
// under the alias, any other value is named by it.
func (r *resolver) expr(e *env, node ast.Expr) (*value, error) {
	v, err := r.exprValue(e, node)
	if err != nil {
		return nil, err
	}
	alias := node.AliasName()
	if alias == "" || v.expr == nil {
		return v, nil
	}
	x := *v.expr
	if x.Lineage != nil {
		x.Lineage = x.Lineage.Rename(alias, x.ID)
	} else {
		x.Alias = alias
	}
	return &value{expr: &x}, nil
}

func (r *resolver) exprValue(e *env, node ast.Expr) (*value, error) {
	switch n := node.(type) {
	case *ast.Literal:
		x, err := r.literal(n)
		if err != nil {
			return nil, err
		}
		return &value{expr: x}, nil
	case *ast.Ident:
		return r.ident(e, n)
	case *ast.Unary:
		return r.unary(e, n)
	case *ast.Binary:
		return r.binary(e, n)
	case *ast.Tuple:
		return r.tuple(e, n)
	case *ast.Array:
		return r.array(e, n)
	case *ast.Range:
		return r.rangeExpr(e, n)
	case *ast.Call:
		return r.call(e, n)
	case *ast.Pipeline:
		return r.pipeline(e, n)
	case *ast.Func:
		return &value{fn: lambdaClosure(n, e)}, nil
	case *ast.FString:
		return r.interp(e, n.Items, false, n.Loc)
	case *ast.SString:
		return r.interp(e, n.Items, true, n.Loc)
	case *ast.Case:
		return r.caseExpr(e, n)
	case *ast.QueryParam:
		x := r.newExpr(ir.Param{Name: n.Name}, n.Loc)
		x.Type = types.Unknown
		return &value{expr: x}, nil
	}
	panic(internalError{span: node.Span(), reason: fmt.Sprintf("unsupported expression %T", node)})
}

// scalar resolves node in a column position: functions must be fully
// applied there.
func (r *resolver) scalar(e *env, node ast.Expr) (*ir.Expr, error) {
	v, err := r.expr(e, node)
	if err != nil {
		return nil, err
	}
	if v.fn != nil {
		return nil, missingArgument(v.fn, v.fn.remaining(), node.Span())
	}
	return v.expr, nil
}

func (r *resolver) literal(n *ast.Literal) (*ir.Expr, error) {
	return r.literalValue(n, false, n.Loc)
}

func (r *resolver) literalValue(n *ast.Literal, negate bool, span ast.Span) (*ir.Expr, error) {
	v, err := ir.ValueOf(n, negate)
	if err != nil {
		return nil, diagnostic.New(diagnostic.InvalidArgument, span, "%v", err)
	}
	x := r.newExpr(ir.Literal{Value: v}, span)
	x.Type = v.Type()
	return x, nil
}

func (r *resolver) op(name string) *std.Function {
	fn, ok := r.lib.Lookup(name)
	if !ok {
		panic(internalError{span: r.stmt, reason: "missing std operator " + name})
	}
	return fn
}

func (r *resolver) binary(e *env, b *ast.Binary) (*value, error) {
	name, ok := binaryOps[b.Op]
	if !ok {
		panic(internalError{span: b.Loc, reason: "unknown operator " + b.Op})
	}
	fn := r.op(name)
	// `sort -x` reads as a subtraction whose left operand is a transform.
	left, lerr := r.expr(e, b.Left)
	if lerr == nil && left.fn != nil && left.fn.isTransform() {
		return nil, notAPipeline(b.Loc, "internal "+fn.FullName())
	}
	right, rerr := r.expr(e, b.Right)
	if err := joinErrors([]error{lerr, rerr}); err != nil {
		return nil, err
	}
	operands := []*value{left, right}
	nodes := []ast.Expr{b.Left, b.Right}
	args := make([]*ir.Expr, 2)
	for i, v := range operands {
		if v.fn != nil {
			if v.fn.isTransform() {
				return nil, notAPipeline(b.Loc, "internal "+fn.FullName())
			}
			return nil, missingArgument(v.fn, v.fn.remaining(), nodes[i].Span())
		}
		args[i] = v.expr
	}
	x, err := r.callStd(fn, args, b.Loc)
	if err != nil {
		return nil, err
	}
	return &value{expr: x}, nil
}

func (r *resolver) unary(e *env, u *ast.Unary) (*value, error) {
	switch u.Op {
	case "==":
		return r.selfEquality(e, u)
	case "+":
		return r.expr(e, u.Operand)
	case "-":
		if lit, ok := u.Operand.(*ast.Literal); ok && negatable(lit) {
			x, err := r.literalValue(lit, true, u.Loc)
			if err != nil {
				return nil, err
			}
			return &value{expr: x}, nil
		}
	}
	name := "neg"
	if u.Op == "!" {
		name = "not"
	}
	fn := r.op(name)
	v, err := r.expr(e, u.Operand)
	if err != nil {
		return nil, err
	}
	if v.fn != nil {
		if v.fn.isTransform() {
			return nil, notAPipeline(u.Loc, "internal "+fn.FullName())
		}
		return nil, missingArgument(v.fn, v.fn.remaining(), u.Operand.Span())
	}
	x, err := r.callStd(fn, []*ir.Expr{v.expr}, u.Loc)
	if err != nil {
		return nil, err
	}
	return &value{expr: x}, nil
}

func negatable(lit *ast.Literal) bool {
	return lit.Kind == ast.LitInt || lit.Kind == ast.LitFloat || lit.Kind == ast.LitInterval
}

// selfEquality resolves the join shorthand `==col`, which compares the
// column of the same name on both sides.
func (r *resolver) selfEquality(e *env, u *ast.Unary) (*value, error) {
	id, ok := u.Operand.(*ast.Ident)
	if !e.inJoin || !ok {
		return nil, diagnostic.New(diagnostic.InvalidArgument, u.Loc,
			"`%s` is only valid as a join condition", ast.PrintValue(u)).
			WithHelp("write the comparison in full, for example `a == b`")
	}
	left, lerr := r.frameColumn(&env{scope: e.scope, frame: e.left}, id.Path, id)
	right, rerr := r.frameColumn(&env{scope: e.scope, frame: e.that}, id.Path, id)
	if err := joinErrors([]error{lerr, rerr}); err != nil {
		return nil, err
	}
	x, err := r.callStd(r.op("eq"), []*ir.Expr{left.expr, right.expr}, u.Loc)
	if err != nil {
		return nil, err
	}
	return &value{expr: x}, nil
}

// callStd type-checks resolved arguments against a std signature.
func (r *resolver) callStd(fn *std.Function, args []*ir.Expr, span ast.Span) (*ir.Expr, error) {
	params := fn.Positional()
	var errs []error
	for i, a := range args {
		if err := checkArg(fn, params[i].Name, params[i].Type, a); err != nil {
			errs = append(errs, err)
		}
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	ret := fn.Return
	if fn.SameAs != "" {
		for i, p := range params {
			if p.Name == fn.SameAs {
				ret = scalarOf(args[i].Type, p.Type)
			}
		}
	}
	x := r.newExpr(ir.Call{Func: fn.FullName(), Args: args}, span)
	x.Type = ret
	return x, nil
}

// checkArg reports a TypeMismatch when x cannot be passed as param p. The
// primary span is where the value was written; when it was reached through
// a name, the use site becomes a secondary label.
func checkArg(fn *std.Function, p string, expected *types.Type, x *ir.Expr) error {
	if types.Compatible(expected, scalarOf(x.Type, expected)) {
		return nil
	}
	d := mismatch(fmt.Sprintf("function %s, param `%s`", fn.FullName(), p), expected, x.Type, x.Span)
	if x.RefSpan.IsValid() && x.RefSpan != x.Span {
		d.WithLabel(x.RefSpan, "used here")
	}
	return d
}

// scalarOf unwraps the sub-rows of a grouped column so that functions
// applied inside a group body check against the column type.
func scalarOf(t, expected *types.Type) *types.Type {
	if t != nil && t.Kind == types.KindArray && !t.IsRelation() && (expected == nil || expected.Kind != types.KindArray) {
		return t.Elem
	}
	return t
}

func mismatch(what string, expected, found *types.Type, span ast.Span) *diagnostic.Diagnostic {
	d := diagnostic.New(diagnostic.TypeMismatch, span,
		"%s expected type `%s`, but found type `%s`", what, expected, found)
	if types.MentionsRelation(expected) || types.MentionsRelation(found) {
		d.WithNote(types.RelationNote)
	}
	return d
}

func notAPipeline(span ast.Span, found string) *diagnostic.Diagnostic {
	return diagnostic.New(diagnostic.NotAPipeline, span,
		"expected a pipeline that resolves to a table, but found `%s`", found).
		WithHelp("are you missing a `from` statement?")
}

func missingArgument(c *closure, unfilled []param, span ast.Span) *diagnostic.Diagnostic {
	name := c.name
	if len(unfilled) == 0 {
		return diagnostic.New(diagnostic.MissingArgument, span, "function %s is not fully applied", name)
	}
	p := unfilled[0]
	return diagnostic.New(diagnostic.MissingArgument, span,
		"missing argument `%s` for function %s", p.name, name).
		WithHelp("function %s needs a value for param `%s`", name, p.name)
}

func (r *resolver) tuple(e *env, t *ast.Tuple) (*value, error) {
	fields, err := r.fields(e, t.Fields)
	if err != nil {
		return nil, err
	}
	typeFields := make([]types.Field, len(fields))
	for i, f := range fields {
		typeFields[i] = types.Field{Name: fieldName(f), Type: f.Type}
	}
	x := r.newExpr(ir.Tuple{Fields: fields}, t.Loc)
	x.Type = types.Tuple(typeFields...)
	return &value{expr: x}, nil
}

// fields resolves sibling expressions, collecting every error.
func (r *resolver) fields(e *env, nodes []ast.Expr) ([]*ir.Expr, error) {
	out := make([]*ir.Expr, 0, len(nodes))
	var errs []error
	for _, n := range nodes {
		x, err := r.scalar(e, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, x)
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldName(x *ir.Expr) string {
	if x.Alias != "" {
		return x.Alias
	}
	if ref, ok := x.Kind.(ir.ColumnRef); ok {
		return ref.Name
	}
	return ""
}

func (r *resolver) array(e *env, a *ast.Array) (*value, error) {
	if len(a.Items) > 0 && allTuples(a.Items) {
		x, err := r.relationLiteral(a)
		if err != nil {
			return nil, err
		}
		return &value{expr: x}, nil
	}
	items, err := r.fields(e, a.Items)
	if err != nil {
		return nil, err
	}
	elem := types.Unknown
	for _, it := range items {
		u, err := types.Unify(elem, it.Type)
		if err != nil {
			return nil, mismatch("array", elem, it.Type, it.Span)
		}
		elem = u
	}
	x := r.newExpr(ir.Array{Items: items}, a.Loc)
	x.Type = types.Array(elem)
	return &value{expr: x}, nil
}

func allTuples(items []ast.Expr) bool {
	for _, it := range items {
		if _, ok := it.(*ast.Tuple); !ok {
			return false
		}
	}
	return true
}

// relationLiteral builds an inline table. Rows must be tuples of named
// literal fields with the same columns as the first row.
func (r *resolver) relationLiteral(a *ast.Array) (*ir.Expr, error) {
	var (
		columns  []string
		colTypes []*types.Type
		rows     [][]ir.Value
	)
	for ri, item := range a.Items {
		tup := item.(*ast.Tuple)
		if bad := firstNonLiteral(tup); bad != nil {
			return nil, malformed(bad)
		}
		if ri > 0 && len(tup.Fields) != len(columns) {
			return nil, diagnostic.New(diagnostic.MalformedRelationLiteral, tup.Loc,
				"relation literal rows must have the same columns as the first row")
		}
		row := make([]ir.Value, 0, len(tup.Fields))
		for fi, f := range tup.Fields {
			name := f.AliasName()
			if name == "" {
				return nil, diagnostic.New(diagnostic.MalformedRelationLiteral, f.Span(),
					"relation literal expected named fields, but found `%s`", ast.PrintValue(f))
			}
			if ri == 0 {
				columns = append(columns, name)
				colTypes = append(colTypes, types.Unknown)
			} else if columns[fi] != name {
				return nil, diagnostic.New(diagnostic.MalformedRelationLiteral, f.Span(),
					"relation literal expected column `%s`, but found `%s`", columns[fi], name)
			}
			v, err := literalOf(f)
			if err != nil {
				return nil, err
			}
			t, uerr := types.Unify(colTypes[fi], v.Type())
			if uerr != nil {
				return nil, mismatch(fmt.Sprintf("relation literal column `%s`", name), colTypes[fi], v.Type(), f.Span())
			}
			colTypes[fi] = t
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	x := r.newExpr(ir.RelationLiteral{Columns: columns, Rows: rows}, a.Loc)
	cols := make([]frame.Column, len(columns))
	for i, name := range columns {
		cols[i] = frame.Column{Name: name, Type: colTypes[i]}
	}
	x.Lineage = frame.Begin(frame.Input{Name: "_literal", ID: x.ID}, cols)
	x.Type = x.Lineage.Type()
	return x, nil
}

// firstNonLiteral finds the first leaf of n, at any depth, that is not a
// literal. A negated number counts as a literal.
func firstNonLiteral(n ast.Expr) ast.Expr {
	switch v := n.(type) {
	case *ast.Literal:
		return nil
	case *ast.Unary:
		if lit, ok := v.Operand.(*ast.Literal); ok && v.Op == "-" && negatable(lit) {
			return nil
		}
	case *ast.Tuple:
		for _, f := range v.Fields {
			if bad := firstNonLiteral(f); bad != nil {
				return bad
			}
		}
		return nil
	case *ast.Array:
		for _, it := range v.Items {
			if bad := firstNonLiteral(it); bad != nil {
				return bad
			}
		}
		return nil
	}
	return n
}

func malformed(n ast.Expr) *diagnostic.Diagnostic {
	return diagnostic.New(diagnostic.MalformedRelationLiteral, n.Span(),
		"relation literal expected literals, but found `%s`", ast.PrintValue(n))
}

// literalOf converts a field already known to hold only literals.
// Nested tuples and arrays are not row values.
func literalOf(f ast.Expr) (ir.Value, error) {
	switch v := f.(type) {
	case *ast.Literal:
		val, err := ir.ValueOf(v, false)
		if err != nil {
			return nil, diagnostic.New(diagnostic.MalformedRelationLiteral, f.Span(), "%v", err)
		}
		return val, nil
	case *ast.Unary:
		val, err := ir.ValueOf(v.Operand.(*ast.Literal), true)
		if err != nil {
			return nil, diagnostic.New(diagnostic.MalformedRelationLiteral, f.Span(), "%v", err)
		}
		return val, nil
	}
	return nil, malformed(f)
}

func (r *resolver) rangeExpr(e *env, n *ast.Range) (*value, error) {
	var (
		bounds [2]*ir.Expr
		errs   []error
	)
	for i, b := range []ast.Expr{n.Start, n.End} {
		if b == nil {
			continue
		}
		x, err := r.scalar(e, b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bounds[i] = x
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	x := r.newExpr(ir.Range{Start: bounds[0], End: bounds[1]}, n.Loc)
	x.Type = types.RangeType
	return &value{expr: x}, nil
}

// interp resolves the holes of an f-string or s-string in the enclosing
// env. An empty hole is reported at the hole itself.
func (r *resolver) interp(e *env, items []ast.InterpItem, sql bool, span ast.Span) (*value, error) {
	parts := make([]ir.InterpPart, 0, len(items))
	var errs []error
	for _, it := range items {
		if !it.Hole {
			parts = append(parts, ir.InterpPart{Text: it.Text})
			continue
		}
		if it.Expr == nil {
			errs = append(errs, diagnostic.New(diagnostic.InterpolationSyntaxError, it.Loc,
				"unexpected end of input while parsing interpolated string"))
			continue
		}
		x, err := r.scalar(e, it.Expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parts = append(parts, ir.InterpPart{Expr: x})
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	x := r.newExpr(ir.Interp{SQL: sql, Parts: parts}, span)
	x.Type = types.Text
	if sql {
		x.Type = types.Unknown
	}
	return &value{expr: x}, nil
}

func (r *resolver) caseExpr(e *env, c *ast.Case) (*value, error) {
	arms := make([]ir.CaseArm, 0, len(c.Arms))
	result := types.Unknown
	var errs []error
	for _, arm := range c.Arms {
		cond, cerr := r.scalar(e, arm.Cond)
		val, verr := r.scalar(e, arm.Value)
		if err := joinErrors([]error{cerr, verr}); err != nil {
			errs = append(errs, err)
			continue
		}
		if !types.Compatible(types.Bool, scalarOf(cond.Type, types.Bool)) {
			errs = append(errs, mismatch("case condition", types.Bool, cond.Type, cond.Span))
			continue
		}
		t, err := types.Unify(result, val.Type)
		if err != nil {
			errs = append(errs, mismatch("case", result, val.Type, val.Span))
			continue
		}
		result = t
		arms = append(arms, ir.CaseArm{Cond: cond, Value: val})
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	x := r.newExpr(ir.Case{Arms: arms}, c.Loc)
	x.Type = result
	return &value{expr: x}, nil
}
