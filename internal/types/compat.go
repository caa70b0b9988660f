package types

import "fmt"

// MismatchError is returned by Unify when neither side accepts the other.
type MismatchError struct {
	Expected *Type
	Found    *Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected type `%s`, but found type `%s`", e.Expected, e.Found)
}

// Compatible reports whether a value of type actual may be used where
// expected is required.
//
// Rules:
//   - unknown is compatible with everything, in both directions
//   - an actual union must fit entirely; an expected union needs one member
//   - primitives match by kind; null fits every primitive
//   - tuples match by field name; unnamed fields match by position
//   - arrays match element-wise, comparing row tuples in field order
//   - functions are contravariant in parameters and covariant in return
//
// Display names never matter, so `relation` and `[tuple]` are
// interchangeable.
func Compatible(expected, actual *Type) bool {
	return compatible(expected, actual, false)
}

func compatible(e, a *Type, rows bool) bool {
	if e.IsUnknown() || a.IsUnknown() {
		return true
	}
	if a.Kind == KindUnion {
		for _, m := range a.Members {
			if !compatible(e, m, rows) {
				return false
			}
		}
		return true
	}
	if e.Kind == KindUnion {
		for _, m := range e.Members {
			if compatible(m, a, rows) {
				return true
			}
		}
		return false
	}
	if e.Kind != a.Kind {
		return false
	}
	switch e.Kind {
	case KindPrimitive:
		return e.Prim == a.Prim || a.Prim == PrimNull
	case KindTuple:
		return tupleCompatible(e, a, rows)
	case KindArray:
		return compatible(e.Elem, a.Elem, true)
	case KindFunction:
		if len(e.Params) != len(a.Params) {
			return false
		}
		for i := range e.Params {
			if !compatible(a.Params[i], e.Params[i], false) {
				return false
			}
		}
		return compatible(e.Return, a.Return, false)
	}
	return false
}

func tupleCompatible(e, a *Type, rows bool) bool {
	if len(e.Fields) == 0 && e.Open {
		return true
	}
	last := -1
	for i, ef := range e.Fields {
		idx := -1
		if ef.Name == "" {
			if i < len(a.Fields) {
				idx = i
			}
		} else {
			for j, af := range a.Fields {
				if af.Name == ef.Name {
					idx = j
					break
				}
			}
		}
		if idx < 0 {
			if a.Open {
				continue
			}
			return false
		}
		if rows && idx < last {
			return false
		}
		last = idx
		if !compatible(ef.Type, a.Fields[idx].Type, false) {
			return false
		}
	}
	if !e.Open && !a.Open && len(a.Fields) != len(e.Fields) {
		return false
	}
	return true
}

// Unify merges two types. Unknown yields to the other side; otherwise one
// side must accept the other and the accepting (wider) type is returned.
func Unify(a, b *Type) (*Type, error) {
	switch {
	case a.IsUnknown():
		if b == nil {
			return Unknown, nil
		}
		return b, nil
	case b.IsUnknown():
		return a, nil
	case Compatible(a, b):
		return a, nil
	case Compatible(b, a):
		return b, nil
	}
	return nil, &MismatchError{Expected: a, Found: b}
}

// Equal reports structural equality, ignoring display names.
func Equal(a, b *Type) bool {
	if a.IsUnknown() || b.IsUnknown() {
		return a.IsUnknown() && b.IsUnknown()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindPrimitive:
		return a.Prim == b.Prim
	case KindTuple:
		if a.Open != b.Open || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindArray:
		return Equal(a.Elem, b.Elem)
	case KindFunction:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Equal(a.Return, b.Return)
	case KindUnion:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			if !Equal(a.Members[i], b.Members[i]) {
				return false
			}
		}
		return true
	}
	return false
}
