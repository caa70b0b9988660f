package ir

import (
	"fmt"
	"strconv"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/types"
)

// Value is a sealed interface for literal values.
// Floats are kept as their source lexeme so IR never depends on
// floating-point formatting.
type Value interface {
	Type() *types.Type
	String() string
	value() // Sealed
}

// Null is the null literal.
type Null struct{}

// Int is an integer literal.
type Int int64

// Float is a decimal literal, stored as written.
type Float string

// Bool is a boolean literal.
type Bool bool

// String is a text literal.
type String string

// Date is `@2024-01-31`.
type Date string

// Time is `@12:30`.
type Time string

// Timestamp is `@2024-01-31T12:30`.
type Timestamp string

// Interval is `3days`.
type Interval struct {
	N    int64
	Unit string
}

func (Null) value()      {}
func (Int) value()       {}
func (Float) value()     {}
func (Bool) value()      {}
func (String) value()    {}
func (Date) value()      {}
func (Time) value()      {}
func (Timestamp) value() {}
func (Interval) value()  {}

func (Null) Type() *types.Type      { return types.Null }
func (Int) Type() *types.Type       { return types.Int }
func (Float) Type() *types.Type     { return types.Float }
func (Bool) Type() *types.Type      { return types.Bool }
func (String) Type() *types.Type    { return types.Text }
func (Date) Type() *types.Type      { return types.Date }
func (Time) Type() *types.Type      { return types.Time }
func (Timestamp) Type() *types.Type { return types.Timestamp }
func (Interval) Type() *types.Type  { return types.Interval }

func (Null) String() string        { return "null" }
func (v Int) String() string       { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string     { return string(v) }
func (v Bool) String() string      { return strconv.FormatBool(bool(v)) }
func (v String) String() string    { return strconv.Quote(string(v)) }
func (v Date) String() string      { return "@" + string(v) }
func (v Time) String() string      { return "@" + string(v) }
func (v Timestamp) String() string { return "@" + string(v) }
func (v Interval) String() string  { return strconv.FormatInt(v.N, 10) + v.Unit }

// ValueOf converts a literal node into a Value. negate applies a leading
// unary minus (`-1` in a relation literal).
func ValueOf(lit *ast.Literal, negate bool) (Value, error) {
	sign := ""
	if negate {
		sign = "-"
	}
	switch lit.Kind {
	case ast.LitNull:
		if negate {
			return nil, fmt.Errorf("cannot negate null")
		}
		return Null{}, nil
	case ast.LitInt:
		n, err := strconv.ParseInt(sign+lit.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", lit.Value, err)
		}
		return Int(n), nil
	case ast.LitFloat:
		return Float(sign + lit.Value), nil
	case ast.LitBool:
		if negate {
			return nil, fmt.Errorf("cannot negate a boolean")
		}
		b, err := strconv.ParseBool(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", lit.Value)
		}
		return Bool(b), nil
	case ast.LitString:
		if negate {
			return nil, fmt.Errorf("cannot negate a string")
		}
		return String(lit.Value), nil
	case ast.LitDate:
		return Date(lit.Value), nil
	case ast.LitTime:
		return Time(lit.Value), nil
	case ast.LitTimestamp:
		return Timestamp(lit.Value), nil
	case ast.LitInterval:
		n, err := strconv.ParseInt(sign+lit.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", lit.Value, err)
		}
		return Interval{N: n, Unit: lit.Unit}, nil
	}
	return nil, fmt.Errorf("unsupported literal kind %s", lit.Kind)
}

// valueDoc renders a value into the canonical document form.
func valueDoc(v Value) map[string]any {
	switch val := v.(type) {
	case Null:
		return map[string]any{"null": true}
	case Int:
		return map[string]any{"int": int64(val)}
	case Float:
		return map[string]any{"float": string(val)}
	case Bool:
		return map[string]any{"bool": bool(val)}
	case String:
		return map[string]any{"text": string(val)}
	case Date:
		return map[string]any{"date": string(val)}
	case Time:
		return map[string]any{"time": string(val)}
	case Timestamp:
		return map[string]any{"timestamp": string(val)}
	case Interval:
		return map[string]any{"interval": val.N, "unit": val.Unit}
	}
	return map[string]any{}
}
