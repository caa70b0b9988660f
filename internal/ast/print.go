package ast

import (
	"strings"
)

// Print renders an expression back to query text. The output is normalised
// (single spaces, no line breaks) and is meant for diagnostics, not for
// round-tripping source files.
func Print(e Expr) string {
	var b strings.Builder
	printExpr(&b, e, 0)
	return b.String()
}

// PrintValue renders e like Print, leaving out its own alias.
func PrintValue(e Expr) string {
	var b strings.Builder
	printValue(&b, e, 0)
	return b.String()
}

// binding strength used to decide on parentheses
var opPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 4, "!=": 4, "<": 4, ">": 4, "<=": 4, ">=": 4, "~=": 4,
	"??": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "//": 7, "%": 7,
	"..": 8,
}

// OpPrecedence reports the binding strength of a binary operator.
func OpPrecedence(op string) (int, bool) {
	p, ok := opPrec[op]
	return p, ok
}

func printExpr(b *strings.Builder, e Expr, ctx int) {
	if e == nil {
		return
	}
	if a := e.AliasName(); a != "" {
		b.WriteString(a)
		b.WriteString(" = ")
	}
	printValue(b, e, ctx)
}

func printValue(b *strings.Builder, e Expr, ctx int) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *Ident:
		b.WriteString(n.Name())
	case *Literal:
		printLiteral(b, n)
	case *Tuple:
		b.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, f, 0)
		}
		b.WriteByte('}')
	case *Array:
		b.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, item, 0)
		}
		b.WriteByte(']')
	case *Range:
		printExpr(b, n.Start, opPrec[".."]+1)
		b.WriteString("..")
		printExpr(b, n.End, opPrec[".."]+1)
	case *Binary:
		p := opPrec[n.Op]
		paren := ctx > p
		if paren {
			b.WriteByte('(')
		}
		printExpr(b, n.Left, p)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		printExpr(b, n.Right, p+1)
		if paren {
			b.WriteByte(')')
		}
	case *Unary:
		b.WriteString(n.Op)
		printExpr(b, n.Operand, 10)
	case *Call:
		paren := ctx > 0
		if paren {
			b.WriteByte('(')
		}
		printExpr(b, n.Func, 10)
		for _, na := range n.Named {
			b.WriteByte(' ')
			b.WriteString(na.Name)
			b.WriteByte(':')
			printExpr(b, na.Value, 10)
		}
		for _, a := range n.Args {
			b.WriteByte(' ')
			printExpr(b, a, 10)
		}
		if paren {
			b.WriteByte(')')
		}
	case *Pipeline:
		b.WriteByte('(')
		for i, step := range n.Exprs {
			if i > 0 {
				b.WriteString(" | ")
			}
			printExpr(b, step, 0)
		}
		b.WriteByte(')')
	case *Func:
		if ctx > 0 {
			b.WriteByte('(')
		}
		for _, p := range n.Params {
			b.WriteString(p.Name)
			if p.Named && p.Default != nil {
				b.WriteByte(':')
				printExpr(b, p.Default, 10)
			}
			b.WriteByte(' ')
		}
		b.WriteString("-> ")
		printExpr(b, n.Body, 0)
		if ctx > 0 {
			b.WriteByte(')')
		}
	case *FString:
		b.WriteString(`f"`)
		printInterp(b, n.Items)
		b.WriteByte('"')
	case *SString:
		b.WriteString(`s"`)
		printInterp(b, n.Items)
		b.WriteByte('"')
	case *Case:
		b.WriteString("case [")
		for i, arm := range n.Arms {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, arm.Cond, 0)
			b.WriteString(" => ")
			printExpr(b, arm.Value, 0)
		}
		b.WriteByte(']')
	case *QueryParam:
		b.WriteByte('$')
		b.WriteString(n.Name)
	}
}

func printLiteral(b *strings.Builder, l *Literal) {
	switch l.Kind {
	case LitString:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(l.Value, `"`, `\"`))
		b.WriteByte('"')
	case LitDate, LitTime, LitTimestamp:
		b.WriteByte('@')
		b.WriteString(l.Value)
	case LitInterval:
		b.WriteString(l.Value)
		b.WriteString(l.Unit)
	default:
		b.WriteString(l.Value)
	}
}

func printInterp(b *strings.Builder, items []InterpItem) {
	for _, it := range items {
		switch {
		case it.Hole:
			b.WriteString("{")
			printExpr(b, it.Expr, 0)
			b.WriteString("}")
		default:
			b.WriteString(it.Text)
		}
	}
}
