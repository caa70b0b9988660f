package target

import (
	"fmt"

	"github.com/roach88/pql/internal/ir"
)

// Report is the portability analysis of a module for one dialect.
type Report struct {
	// IsPortable is true when the dialect can express every construct the
	// module uses.
	IsPortable bool `json:"portable"`

	// Warnings lists the non-portable constructs, in IR walk order, each at
	// most once. Empty when IsPortable is true.
	Warnings []string `json:"warnings"`
}

// Validate checks m against the features d supports. Relation `let`s are
// checked before main.
func Validate(m *ir.Module, d Dialect) Report {
	v := &validator{dialect: d, seen: map[string]bool{}, warnings: []string{}}
	for _, t := range m.Tables {
		ir.Walk(t.Expr, v.visit)
	}
	ir.Walk(m.Main, v.visit)

	return Report{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	dialect  Dialect
	seen     map[string]bool
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if v.seen[msg] {
		return
	}
	v.seen[msg] = true
	v.warnings = append(v.warnings, msg)
}

func (v *validator) visit(e *ir.Expr) bool {
	switch k := e.Kind.(type) {
	case ir.Transform:
		if k.Kind == ir.TransformJoin && k.Side == "full" && !v.dialect.FullJoin {
			v.addWarning("%s does not support full joins", v.dialect.Name)
		}
	case ir.Literal:
		if _, ok := k.Value.(ir.Interval); ok && !v.dialect.Intervals {
			v.addWarning("%s does not support interval literals", v.dialect.Name)
		}
	case ir.Call:
		if k.Func == "std.regex_search" && !v.dialect.Regex {
			v.addWarning("%s does not support regular expressions", v.dialect.Name)
		}
	case ir.Interp:
		if k.SQL {
			v.addWarning("s-string is emitted verbatim and cannot be checked against %s", v.dialect.Name)
		}
	}
	return true
}
