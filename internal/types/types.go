// Package types implements the structural type lattice used by the resolver.
//
// Types are immutable once constructed. The shared values (Int, Relation,
// Transform, ...) are built at package initialisation and never mutated, so
// they can be used from concurrent compilations without locking.
package types

import "strings"

// Kind is the top-level shape of a type.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrimitive
	KindTuple
	KindArray
	KindFunction
	KindUnion
)

// Prim enumerates scalar kinds.
type Prim int

const (
	PrimInt Prim = iota + 1
	PrimFloat
	PrimBool
	PrimText
	PrimDate
	PrimTime
	PrimTimestamp
	PrimInterval
	PrimRange
	PrimNull
)

var primNames = map[Prim]string{
	PrimInt:       "int",
	PrimFloat:     "float",
	PrimBool:      "bool",
	PrimText:      "text",
	PrimDate:      "date",
	PrimTime:      "time",
	PrimTimestamp: "timestamp",
	PrimInterval:  "interval",
	PrimRange:     "range",
	PrimNull:      "null",
}

func (p Prim) String() string {
	return primNames[p]
}

// Field is one tuple field. Unnamed (positional) fields have an empty Name.
type Field struct {
	Name string
	Type *Type
}

// Type is a node of the lattice. Name is a display alias ("relation",
// "transform"); it never participates in compatibility.
type Type struct {
	Kind Kind
	Name string

	Prim Prim // KindPrimitive

	Fields []Field // KindTuple
	Open   bool    // KindTuple: unknown further fields may exist (wildcard)

	Elem *Type // KindArray

	Params []*Type // KindFunction
	Return *Type   // KindFunction

	Members []*Type // KindUnion
}

var (
	Unknown   = &Type{Kind: KindUnknown}
	Int       = Primitive(PrimInt)
	Float     = Primitive(PrimFloat)
	Bool      = Primitive(PrimBool)
	Text      = Primitive(PrimText)
	Date      = Primitive(PrimDate)
	Time      = Primitive(PrimTime)
	Timestamp = Primitive(PrimTimestamp)
	Interval  = Primitive(PrimInterval)
	RangeType = Primitive(PrimRange)
	Null      = Primitive(PrimNull)

	// AnyTuple is the `tuple` type: any tuple matches it.
	AnyTuple = &Type{Kind: KindTuple, Open: true}

	// Relation is `[tuple]` under its display name.
	Relation = Named("relation", Array(AnyTuple))

	// Transform is `func relation -> relation`.
	Transform = Named("transform", Func(Relation, Relation))

	// Scalar is any primitive.
	Scalar = Named("scalar", Union(Int, Float, Bool, Text, Date, Time, Timestamp, Interval))
)

// Primitive returns the scalar type of kind p.
func Primitive(p Prim) *Type {
	return &Type{Kind: KindPrimitive, Prim: p}
}

// Tuple builds a closed tuple.
func Tuple(fields ...Field) *Type {
	return &Type{Kind: KindTuple, Fields: fields}
}

// OpenTuple builds a tuple that may hold fields beyond the listed ones.
func OpenTuple(fields ...Field) *Type {
	return &Type{Kind: KindTuple, Fields: fields, Open: true}
}

// Array builds `[elem]`.
func Array(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// Func builds a function type. The last argument is the return type.
func Func(paramsAndReturn ...*Type) *Type {
	if len(paramsAndReturn) == 0 {
		return &Type{Kind: KindFunction, Return: Unknown}
	}
	n := len(paramsAndReturn) - 1
	params := make([]*Type, n)
	copy(params, paramsAndReturn[:n])
	return &Type{Kind: KindFunction, Params: params, Return: paramsAndReturn[n]}
}

// Union builds `a || b || ...`. Nested unions are flattened and a single
// member collapses to the member itself.
func Union(members ...*Type) *Type {
	var flat []*Type
	for _, m := range members {
		if m == nil {
			continue
		}
		if m.Kind == KindUnion {
			flat = append(flat, m.Members...)
			continue
		}
		flat = append(flat, m)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Type{Kind: KindUnion, Members: flat}
}

// Named returns a copy of t carrying a display name.
func Named(name string, t *Type) *Type {
	c := *t
	c.Name = name
	return &c
}

// RelationOf returns a relation whose rows have the given fields.
func RelationOf(fields []Field, open bool) *Type {
	row := &Type{Kind: KindTuple, Fields: fields, Open: open}
	return Named("relation", Array(row))
}

// IsUnknown reports whether t carries no information.
func (t *Type) IsUnknown() bool {
	return t == nil || t.Kind == KindUnknown
}

// IsRelation reports whether t has the shape `[tuple]`.
func (t *Type) IsRelation() bool {
	return t != nil && t.Kind == KindArray && t.Elem != nil && t.Elem.Kind == KindTuple
}

// IsFunction reports whether t is a function type.
func (t *Type) IsFunction() bool {
	return t != nil && t.Kind == KindFunction
}

// Row returns the row tuple of a relation, or nil.
func (t *Type) Row() *Type {
	if !t.IsRelation() {
		return nil
	}
	return t.Elem
}

// Field looks up a tuple field by name.
func (t *Type) Field(name string) (*Type, bool) {
	if t == nil || t.Kind != KindTuple {
		return nil, false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// String renders the type with the same rules used in every diagnostic.
func (t *Type) String() string {
	var b strings.Builder
	t.render(&b, false)
	return b.String()
}

func (t *Type) render(b *strings.Builder, nested bool) {
	if t == nil {
		b.WriteString("anytype")
		return
	}
	// A function is rendered in full at the top level even when named, so
	// `func transform relation -> relation` keeps its signature visible.
	if t.Name != "" && (t.Kind != KindFunction || nested) {
		b.WriteString(t.Name)
		return
	}
	switch t.Kind {
	case KindUnknown:
		b.WriteString("anytype")
	case KindPrimitive:
		b.WriteString(t.Prim.String())
	case KindTuple:
		if len(t.Fields) == 0 && t.Open {
			b.WriteString("tuple")
			return
		}
		b.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			if f.Name != "" {
				b.WriteString(f.Name)
				b.WriteString(" = ")
			}
			f.Type.render(b, true)
		}
		if t.Open {
			if len(t.Fields) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("..")
		}
		b.WriteByte('}')
	case KindArray:
		b.WriteByte('[')
		t.Elem.render(b, true)
		b.WriteByte(']')
	case KindFunction:
		b.WriteString("func")
		for _, p := range t.Params {
			b.WriteByte(' ')
			p.render(b, true)
		}
		b.WriteString(" -> ")
		t.Return.render(b, true)
	case KindUnion:
		for i, m := range t.Members {
			if i > 0 {
				b.WriteString(" || ")
			}
			m.render(b, true)
		}
	}
}

// MentionsRelation reports whether the rendering of t involves the
// `relation` alias, which is when mismatch diagnostics explain its expansion.
func MentionsRelation(t *Type) bool {
	if t == nil {
		return false
	}
	if t.Name == "relation" || t.Name == "transform" {
		return true
	}
	switch t.Kind {
	case KindArray:
		return MentionsRelation(t.Elem)
	case KindFunction:
		for _, p := range t.Params {
			if MentionsRelation(p) {
				return true
			}
		}
		return MentionsRelation(t.Return)
	case KindUnion:
		for _, m := range t.Members {
			if MentionsRelation(m) {
				return true
			}
		}
	case KindTuple:
		for _, f := range t.Fields {
			if MentionsRelation(f.Type) {
				return true
			}
		}
	}
	return false
}

// RelationNote is the note attached to mismatches involving relations.
const RelationNote = "Type `relation` expands to `[tuple]`"
