package resolver

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/ir"
	"github.com/roach88/pql/internal/scope"
	"github.com/roach88/pql/internal/std"
	"github.com/roach88/pql/internal/types"
)

// env is the context an expression is resolved in.
type env struct {
	scope *scope.Scope

	// frame holds the columns visible to column references; nil outside a
	// transform argument.
	frame *frame.Frame

	// Inside a join condition: the two sides and the `==col` shorthand.
	left   *frame.Frame
	that   *frame.Frame
	inJoin bool
}

func (e *env) withFrame(f *frame.Frame) *env {
	c := *e
	c.frame = f
	c.left, c.that, c.inJoin = nil, nil, false
	return &c
}

// value is the result of resolving an expression: IR or a function.
type value struct {
	expr *ir.Expr
	fn   *closure
}

type param struct {
	name  string
	typ   *types.Type
	oneOf []string
	def   string   // std default
	defAt ast.Expr // lambda default
}

// arg is an argument bound to a closure. It is resolved lazily, in env,
// unless val is already known (pipeline input).
type arg struct {
	node ast.Expr
	env  *env
	val  *value
	span ast.Span
}

// closure is a std function or lambda with some arguments bound. Closures
// are immutable: bind returns a copy.
type closure struct {
	name   string
	std    *std.Function
	lambda *ast.Func
	env    *env

	params    []param
	named     []param
	args      []arg
	namedArgs map[string]arg

	// piped is the index of the argument bound from pipeline input, or -1.
	piped int
}

func stdClosure(fn *std.Function) *closure {
	c := &closure{name: fn.FullName(), std: fn, piped: -1}
	for _, p := range fn.Params {
		pp := param{name: p.Name, typ: p.Type, oneOf: p.OneOf, def: p.Default}
		if p.Named {
			c.named = append(c.named, pp)
		} else {
			c.params = append(c.params, pp)
		}
	}
	return c
}

func lambdaClosure(fn *ast.Func, e *env) *closure {
	c := &closure{name: "anonymous function", lambda: fn, env: e, piped: -1}
	for _, p := range fn.Params {
		pp := param{name: p.Name, typ: types.Unknown, defAt: p.Default}
		if p.Named {
			c.named = append(c.named, pp)
		} else {
			c.params = append(c.params, pp)
		}
	}
	return c
}

func (c *closure) clone() *closure {
	out := *c
	out.args = append([]arg(nil), c.args...)
	out.namedArgs = make(map[string]arg, len(c.namedArgs))
	for k, v := range c.namedArgs {
		out.namedArgs[k] = v
	}
	return &out
}

func (c *closure) withName(name string) *closure {
	if c.lambda == nil {
		return c
	}
	out := c.clone()
	out.name = name
	return out
}

func (c *closure) bind(args ...arg) *closure {
	out := c.clone()
	for _, a := range args {
		if a.val != nil && a.node == nil {
			out.piped = len(out.args)
		}
		out.args = append(out.args, a)
	}
	return out
}

func (c *closure) bindNamed(name string, a arg) *closure {
	out := c.clone()
	out.namedArgs[name] = a
	return out
}

func (c *closure) namedParam(name string) (param, bool) {
	for _, p := range c.named {
		if p.name == name {
			return p, true
		}
	}
	return param{}, false
}

func (c *closure) remaining() []param {
	return c.params[len(c.args):]
}

func (c *closure) full() bool {
	return len(c.args) >= len(c.params)
}

func (c *closure) isTransform() bool {
	return c.std != nil && c.std.Kind == std.KindTransform
}

func (c *closure) returnType() *types.Type {
	if c.std != nil {
		return c.std.Return
	}
	return types.Unknown
}

// Type is the function type over the unbound positional parameters.
func (c *closure) Type() *types.Type {
	var ts []*types.Type
	for _, p := range c.remaining() {
		ts = append(ts, p.typ)
	}
	return types.Func(append(ts, c.returnType())...)
}

// describe names the closure in diagnostics.
func (c *closure) describe() string {
	if c.std != nil {
		return "internal " + c.std.FullName()
	}
	return c.name
}

// boundRelation reports whether a relation was bound to a parameter that
// is not a relation parameter, which is what forgetting an argument to a
// transform looks like.
func (c *closure) boundRelation() bool {
	for i, a := range c.args {
		if a.val != nil && a.val.expr != nil && a.val.expr.Lineage != nil && !c.params[i].typ.IsRelation() {
			return true
		}
	}
	return false
}

// exprType is the type of the value as reported in diagnostics.
func (v *value) exprType() *types.Type {
	if v.fn != nil {
		return v.fn.Type()
	}
	if v.expr == nil || v.expr.Type == nil {
		return types.Unknown
	}
	return v.expr.Type
}
