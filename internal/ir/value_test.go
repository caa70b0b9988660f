package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/types"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name   string
		lit    ast.Literal
		negate bool
		want   Value
		typ    *types.Type
	}{
		{"int", ast.Literal{Kind: ast.LitInt, Value: "42"}, false, Int(42), types.Int},
		{"negative int", ast.Literal{Kind: ast.LitInt, Value: "7"}, true, Int(-7), types.Int},
		{"float keeps lexeme", ast.Literal{Kind: ast.LitFloat, Value: "1.50"}, false, Float("1.50"), types.Float},
		{"negative float", ast.Literal{Kind: ast.LitFloat, Value: "0.5"}, true, Float("-0.5"), types.Float},
		{"bool", ast.Literal{Kind: ast.LitBool, Value: "true"}, false, Bool(true), types.Bool},
		{"string", ast.Literal{Kind: ast.LitString, Value: "Canada"}, false, String("Canada"), types.Text},
		{"null", ast.Literal{Kind: ast.LitNull, Value: "null"}, false, Null{}, types.Null},
		{"date", ast.Literal{Kind: ast.LitDate, Value: "2024-01-31"}, false, Date("2024-01-31"), types.Date},
		{"interval", ast.Literal{Kind: ast.LitInterval, Value: "3", Unit: "days"}, false, Interval{N: 3, Unit: "days"}, types.Interval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lit := tt.lit
			got, err := ValueOf(&lit, tt.negate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Same(t, tt.typ, got.Type())
		})
	}
}

func TestValueOfErrors(t *testing.T) {
	_, err := ValueOf(&ast.Literal{Kind: ast.LitString, Value: "x"}, true)
	assert.Error(t, err)
	_, err = ValueOf(&ast.Literal{Kind: ast.LitInt, Value: "99999999999999999999"}, false)
	assert.Error(t, err)
	_, err = ValueOf(&ast.Literal{Kind: ast.LitBool, Value: "yes"}, false)
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, `"a"`, String("a").String())
	assert.Equal(t, "@2024-01-31", Date("2024-01-31").String())
	assert.Equal(t, "3days", Interval{N: 3, Unit: "days"}.String())
	assert.Equal(t, "null", Null{}.String())
}
