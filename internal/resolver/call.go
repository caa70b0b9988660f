package resolver

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/scope"
	"github.com/roach88/pql/internal/types"
)

func (r *resolver) call(e *env, c *ast.Call) (*value, error) {
	head, err := r.expr(e, c.Func)
	if err != nil {
		return nil, err
	}
	if head.fn == nil {
		return nil, notAFunction(head.expr, c.Loc)
	}
	cl := head.fn
	for _, na := range c.Named {
		if _, ok := cl.namedParam(na.Name); !ok {
			return nil, diagnostic.New(diagnostic.InvalidArgument, na.Loc,
				"unknown named argument `%s` for function %s", na.Name, cl.name)
		}
		cl = cl.bindNamed(na.Name, arg{node: na.Value, env: e, span: na.Loc})
	}
	args := make([]arg, len(c.Args))
	for i, a := range c.Args {
		args[i] = arg{node: a, env: e, span: a.Span()}
	}
	return r.apply(cl, args, c.Loc)
}

// apply binds args to cl. Once every positional parameter is bound the
// function is invoked; leftover arguments are applied to its result.
func (r *resolver) apply(cl *closure, args []arg, span ast.Span) (*value, error) {
	for {
		n := min(len(cl.remaining()), len(args))
		cl = cl.bind(args[:n]...)
		args = args[n:]
		if !cl.full() {
			return &value{fn: cl}, nil
		}
		v, err := r.invoke(cl, span)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return v, nil
		}
		if v.fn == nil {
			return nil, notAFunction(v.expr, span)
		}
		cl = v.fn
	}
}

func notAFunction(x *ir.Expr, span ast.Span) *diagnostic.Diagnostic {
	return diagnostic.New(diagnostic.NotAFunction, span, "expected a function, but found `%s`", describe(x))
}

// describe names a resolved value in diagnostics.
func describe(x *ir.Expr) string {
	switch k := x.Kind.(type) {
	case ir.TableRef:
		return k.Name
	case ir.Transform:
		if k.Kind == ir.TransformFrom && k.Input != nil {
			return describe(k.Input)
		}
		return k.Kind.String() + " (" + x.Type.String() + ")"
	case ir.ColumnRef:
		return frame.Column{Name: k.Name, Input: k.Input}.Qualified()
	case ir.Literal:
		return k.Value.String()
	}
	return x.Type.String()
}

// pipeline threads the value of each step into the next one as its next
// positional argument.
func (r *resolver) pipeline(e *env, p *ast.Pipeline) (*value, error) {
	cur, err := r.expr(e, p.Exprs[0])
	if err != nil {
		return nil, err
	}
	prev := p.Exprs[0].Span()
	for _, step := range p.Exprs[1:] {
		sv, err := r.expr(e, step)
		if err != nil {
			return nil, err
		}
		if sv.fn == nil {
			return nil, notAFunction(sv.expr, step.Span())
		}
		cur, err = r.apply(sv.fn, []arg{{val: cur, span: prev}}, step.Span())
		if err != nil {
			return nil, err
		}
		prev = step.Span()
	}
	return cur, nil
}

func (r *resolver) invoke(cl *closure, span ast.Span) (*value, error) {
	switch {
	case cl.lambda != nil:
		return r.invokeLambda(cl, span)
	case cl.isTransform():
		x, err := r.transform(cl, span)
		if err != nil {
			return nil, err
		}
		return &value{expr: x}, nil
	}
	args := make([]*ir.Expr, 0, len(cl.args))
	var errs []error
	for _, a := range cl.args {
		x, err := r.scalarArg(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		args = append(args, x)
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	x, err := r.callStd(cl.std, args, span)
	if err != nil {
		return nil, err
	}
	return &value{expr: x}, nil
}

func (r *resolver) argValue(a arg) (*value, error) {
	if a.val != nil {
		return a.val, nil
	}
	return r.expr(a.env, a.node)
}

func (r *resolver) scalarArg(a arg) (*ir.Expr, error) {
	v, err := r.argValue(a)
	if err != nil {
		return nil, err
	}
	if v.fn != nil {
		return nil, missingArgument(v.fn, v.fn.remaining(), a.span)
	}
	return v.expr, nil
}

// invokeLambda binds the arguments as parameters in a scope nested in the
// definition scope. The body sees the frame of the call site. A lambda
// whose body is already being resolved is recursive and rejected.
func (r *resolver) invokeLambda(cl *closure, span ast.Span) (*value, error) {
	if r.calling[cl.lambda] {
		return nil, diagnostic.New(diagnostic.InvalidArgument, span,
			"recursive function `%s` is not supported", cl.name).
			WithLabel(cl.lambda.Loc, "`%s` is defined here", cl.name)
	}
	sc := scope.New(cl.env.scope, "lambda "+cl.name)
	site := cl.env.frame
	var errs []error
	for i, p := range cl.params {
		a := cl.args[i]
		if a.env != nil && a.env.frame != nil {
			site = a.env.frame
		}
		v, err := r.argValue(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sc.Declare(p.name, &scope.Decl{Kind: scope.DeclParam, Span: a.span, Value: v})
	}
	for _, p := range cl.named {
		a, ok := cl.namedArgs[p.name]
		if !ok {
			if p.defAt == nil {
				errs = append(errs, missingArgument(cl, []param{p}, cl.lambda.Loc))
				continue
			}
			a = arg{node: p.defAt, env: cl.env, span: p.defAt.Span()}
		}
		v, err := r.argValue(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sc.Declare(p.name, &scope.Decl{Kind: scope.DeclParam, Span: a.span, Value: v})
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	r.calling[cl.lambda] = true
	defer delete(r.calling, cl.lambda)
	return r.expr(&env{scope: sc, frame: site}, cl.lambda.Body)
}

// expectRelation checks the shape of a complete pipeline.
func (r *resolver) expectRelation(v *value, what string, span ast.Span) (*ir.Expr, error) {
	if c := v.fn; c != nil {
		if c.isTransform() && c.boundRelation() {
			return nil, mismatch(what, relationType, c.Type(), span).
				WithHelp("Have you forgotten an argument to function %s?", c.std.FullName())
		}
		return nil, notAPipeline(span, c.describe())
	}
	if v.expr.Type.IsRelation() {
		return v.expr, nil
	}
	if x, ok := r.asRelation(v.expr); ok {
		return x, nil
	}
	return nil, mismatch(what, relationType, v.expr.Type, span)
}

// asRelation returns x as a relation with lineage. An array compatible
// with `relation` carries no columns to track, so only the empty array is
// accepted: `[]` is a relation literal without rows or columns.
func (r *resolver) asRelation(x *ir.Expr) (*ir.Expr, bool) {
	if x.Lineage != nil && x.Type.IsRelation() {
		return x, true
	}
	arr, ok := x.Kind.(ir.Array)
	if !ok || len(arr.Items) > 0 || !types.Compatible(relationType, x.Type) {
		return nil, false
	}
	lit := r.newExpr(ir.RelationLiteral{}, x.Span)
	lit.Lineage = frame.Begin(frame.Input{Name: "_literal", ID: lit.ID}, nil)
	lit.Type = lit.Lineage.Type()
	return lit, true
}
