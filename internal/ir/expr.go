package ir

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/types"
)

// Expr is a resolved, typed expression.
type Expr struct {
	ID   int
	Kind Kind
	Type *types.Type
	Span ast.Span

	// RefSpan is the use site when the expression was reached through a
	// name (a `let` or a lambda parameter) whose value is defined elsewhere.
	RefSpan ast.Span

	Alias string

	// Lineage is set on relation-typed expressions.
	Lineage *frame.Frame
}

// Kind is a sealed interface for the variants of Expr.
type Kind interface {
	kindName() string
}

// Literal is a constant.
type Literal struct {
	Value Value
}

// ColumnRef points at a frame column.
type ColumnRef struct {
	Input    string
	Name     string
	Target   int
	Inferred bool // assumed to exist in a wildcard input
}

// All is every column of an input (`x.*`), or of the whole frame (`this`,
// `that`) when Input is empty.
type All struct {
	Input string
}

// TableRef reads a relation source: a catalog table or a relation `let`.
type TableRef struct {
	Name string
}

// Call is an application of a std function or operator.
type Call struct {
	Func string
	Args []*Expr
}

// Tuple is `{...}`.
type Tuple struct {
	Fields []*Expr
}

// Array is `[...]` holding non-tuple items.
type Array struct {
	Items []*Expr
}

// Range is `start..end`; either bound may be nil.
type Range struct {
	Start *Expr
	End   *Expr
}

// InterpPart is a text piece or a resolved hole.
type InterpPart struct {
	Text string
	Expr *Expr
}

// Interp is an f-string, or an s-string when SQL is set.
type Interp struct {
	SQL   bool
	Parts []InterpPart
}

// CaseArm is one `cond => value` arm.
type CaseArm struct {
	Cond  *Expr
	Value *Expr
}

// Case is `case [...]`.
type Case struct {
	Arms []CaseArm
}

// Param is a query parameter `$1`.
type Param struct {
	Name string
}

// RelationLiteral is an inline table.
type RelationLiteral struct {
	Columns []string
	Rows    [][]Value
}

// GroupRows is the relation a `group` body starts from: the rows of the
// current group.
type GroupRows struct{}

// SortKey is one key of a sort transform.
type SortKey struct {
	Expr *Expr
	Desc bool
}

// Transform is a relational transform applied to Input.
type Transform struct {
	Kind  TransformKind
	Input *Expr

	// Args holds the column list or condition, in source order.
	Args []*Expr

	// By holds the group keys.
	By []*Expr

	Sort []SortKey

	// With is the right side of join or the relation appended.
	With *Expr
	Side string

	// Body is the resolved sub-pipeline of group and window.
	Body *Expr

	// Named holds validated named arguments (window `rows:`, `range:`...).
	Named map[string]*Expr
}

func (Literal) kindName() string         { return "literal" }
func (ColumnRef) kindName() string       { return "column" }
func (All) kindName() string             { return "all" }
func (TableRef) kindName() string        { return "table" }
func (Call) kindName() string            { return "call" }
func (Tuple) kindName() string           { return "tuple" }
func (Array) kindName() string           { return "array" }
func (Range) kindName() string           { return "range" }
func (Interp) kindName() string          { return "interp" }
func (Case) kindName() string            { return "case" }
func (Param) kindName() string           { return "param" }
func (RelationLiteral) kindName() string { return "relation_literal" }
func (GroupRows) kindName() string       { return "group_rows" }
func (Transform) kindName() string       { return "transform" }

// KindName returns the short name of the variant.
func KindName(k Kind) string {
	if k == nil {
		return "none"
	}
	return k.kindName()
}

// TransformKind is the closed set of relational transforms.
type TransformKind int

const (
	TransformFrom TransformKind = iota + 1
	TransformSelect
	TransformFilter
	TransformDerive
	TransformAggregate
	TransformSort
	TransformTake
	TransformJoin
	TransformGroup
	TransformWindow
	TransformAppend
)

var transformNames = map[TransformKind]string{
	TransformFrom:      "from",
	TransformSelect:    "select",
	TransformFilter:    "filter",
	TransformDerive:    "derive",
	TransformAggregate: "aggregate",
	TransformSort:      "sort",
	TransformTake:      "take",
	TransformJoin:      "join",
	TransformGroup:     "group",
	TransformWindow:    "window",
	TransformAppend:    "append",
}

func (k TransformKind) String() string {
	if s, ok := transformNames[k]; ok {
		return s
	}
	return "unknown"
}

// TransformByName maps a std name to its transform kind.
func TransformByName(name string) (TransformKind, bool) {
	for k, n := range transformNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Children returns the direct sub-expressions of e, in a stable order.
func Children(e *Expr) []*Expr {
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch k := e.Kind.(type) {
	case Call:
		add(k.Args...)
	case Tuple:
		add(k.Fields...)
	case Array:
		add(k.Items...)
	case Range:
		add(k.Start, k.End)
	case Interp:
		for _, p := range k.Parts {
			add(p.Expr)
		}
	case Case:
		for _, a := range k.Arms {
			add(a.Cond, a.Value)
		}
	case Transform:
		add(k.Input)
		add(k.Args...)
		add(k.By...)
		for _, s := range k.Sort {
			add(s.Expr)
		}
		add(k.With, k.Body)
		for _, name := range sortedKeys(k.Named) {
			add(k.Named[name])
		}
	}
	return out
}

// Walk visits e and its descendants depth-first. Returning false from fn
// skips the children of the current node.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Table is a relation declared with `let`.
type Table struct {
	Name string
	Expr *Expr
}

// Module is the resolved form of a query source.
type Module struct {
	Target string
	Tables []Table
	Main   *Expr
}
