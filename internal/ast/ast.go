package ast

import "strings"

// Expr is a sealed interface implemented by every expression node.
// Every node carries its source span and an optional alias (`name = expr`).
type Expr interface {
	Span() Span
	AliasName() string
	exprNode() // Sealed
}

// Node holds the fields shared by all expressions.
type Node struct {
	Loc   Span
	Alias string
}

// Span returns the source range of the node.
func (n Node) Span() Span { return n.Loc }

// AliasName returns the alias assigned with `alias = expr`, or "".
func (n Node) AliasName() string { return n.Alias }

func (n *Node) base() *Node { return n }

type nodeHolder interface{ base() *Node }

// SetAlias assigns the alias of e in place.
func SetAlias(e Expr, alias string) {
	if h, ok := e.(nodeHolder); ok {
		h.base().Alias = alias
	}
}

// SetSpan replaces the span of e in place (used to widen a node to its
// surrounding parentheses).
func SetSpan(e Expr, span Span) {
	if h, ok := e.(nodeHolder); ok {
		h.base().Loc = span
	}
}

// Ident is a dotted identifier path such as `db.artists` or `inv.*`.
type Ident struct {
	Node
	Path []string
}

// Name returns the dotted form of the path.
func (i *Ident) Name() string {
	return JoinPath(i.Path)
}

// LitKind classifies literal values.
type LitKind int

const (
	LitNull LitKind = iota
	LitInt
	LitFloat
	LitBool
	LitString
	LitDate
	LitTime
	LitTimestamp
	LitInterval
)

var litKindNames = map[LitKind]string{
	LitNull:      "null",
	LitInt:       "int",
	LitFloat:     "float",
	LitBool:      "bool",
	LitString:    "string",
	LitDate:      "date",
	LitTime:      "time",
	LitTimestamp: "timestamp",
	LitInterval:  "interval",
}

func (k LitKind) String() string {
	if s, ok := litKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseLitKind maps a literal kind name back to its constant.
func ParseLitKind(s string) (LitKind, bool) {
	for k, name := range litKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Literal is a constant. Value keeps the source lexeme (numbers are never
// converted to floating point); Unit is only set for intervals.
type Literal struct {
	Node
	Kind  LitKind
	Value string
	Unit  string
}

// Tuple is `{a, b = c}`.
type Tuple struct {
	Node
	Fields []Expr
}

// Array is `[a, b]`. An array of tuples is a relation literal.
type Array struct {
	Node
	Items []Expr
}

// Range is `start..end`; either bound may be nil.
type Range struct {
	Node
	Start Expr
	End   Expr
}

// Binary is an infix operator application.
type Binary struct {
	Node
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operator: `-x`, `!x`, or the join shorthand `==x`.
type Unary struct {
	Node
	Op      string
	Operand Expr
}

// NamedArg is `name:value` in a call.
type NamedArg struct {
	Name  string
	Value Expr
	Loc   Span
}

// Call applies Func to positional and named arguments by juxtaposition.
type Call struct {
	Node
	Func  Expr
	Args  []Expr
	Named []NamedArg
}

// Pipeline is `a | b | c` (or the same steps on separate lines).
type Pipeline struct {
	Node
	Exprs []Expr
}

// Param is a lambda parameter. Named parameters are passed as `name:value`
// and fall back to Default.
type Param struct {
	Name    string
	Named   bool
	Default Expr
	Loc     Span
}

// Func is a lambda `a b -> body`.
type Func struct {
	Node
	Params []Param
	Body   Expr
}

// InterpItem is one piece of an f-string or s-string: either literal text
// or a `{expr}` hole. Hole marks the latter; an empty `{}` hole has a nil Expr.
type InterpItem struct {
	Text string
	Expr Expr
	Hole bool
	Loc  Span
}

// FString is `f"..."`.
type FString struct {
	Node
	Items []InterpItem
}

// SString is `s"..."`, verbatim SQL with interpolated holes.
type SString struct {
	Node
	Items []InterpItem
}

// CaseArm is `cond => value`.
type CaseArm struct {
	Cond  Expr
	Value Expr
}

// Case is `case [c1 => v1, c2 => v2]`.
type Case struct {
	Node
	Arms []CaseArm
}

// QueryParam is a positional query parameter `$1`.
type QueryParam struct {
	Node
	Name string
}

func (*Ident) exprNode()      {}
func (*Literal) exprNode()    {}
func (*Tuple) exprNode()      {}
func (*Array) exprNode()      {}
func (*Range) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Unary) exprNode()      {}
func (*Call) exprNode()       {}
func (*Pipeline) exprNode()   {}
func (*Func) exprNode()       {}
func (*FString) exprNode()    {}
func (*SString) exprNode()    {}
func (*Case) exprNode()       {}
func (*QueryParam) exprNode() {}

// Stmt is a sealed interface for top-level statements.
type Stmt interface {
	StmtSpan() Span
	stmtNode()
}

// Let binds Name to Value in the module scope.
type Let struct {
	Name  string
	Value Expr
	Loc   Span
}

// Main is the unnamed query pipeline of a module.
type Main struct {
	Value Expr
	Loc   Span
}

// QueryDef is the `prql target:sql.postgres` header.
type QueryDef struct {
	Target  string
	Version string
	Loc     Span
}

func (s *Let) StmtSpan() Span      { return s.Loc }
func (s *Main) StmtSpan() Span     { return s.Loc }
func (s *QueryDef) StmtSpan() Span { return s.Loc }

func (*Let) stmtNode()      {}
func (*Main) stmtNode()     {}
func (*QueryDef) stmtNode() {}

// Module is a whole query source file.
type Module struct {
	Stmts []Stmt
}

// Header returns the query header, if any.
func (m *Module) Header() *QueryDef {
	for _, s := range m.Stmts {
		if q, ok := s.(*QueryDef); ok {
			return q
		}
	}
	return nil
}

// JoinPath renders a path with dots.
func JoinPath(path []string) string {
	return strings.Join(path, ".")
}
