package harness

import (
	"slices"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/store"
	"github.com/roach88/pql/internal/testutil"
)

// absent is the expectation value that asserts an empty help or note.
const absent = "-"

func checkExpectations(s *Scenario, r *Result) {
	rec := r.Record
	if len(s.Expect.Diagnostics) > 0 {
		if rec.Status != store.StatusFailed {
			r.AddError("expected diagnostics, but the query compiled to %v", rec.Frame)
			return
		}
		checkDiagnostics(s, rec.Diagnostics, r)
		return
	}

	if rec.Status != store.StatusOK {
		r.AddError("expected columns %v, but compilation failed:\n%s", s.Expect.Columns, rec.Diagnostics.String())
		return
	}
	if !slices.Equal(s.Expect.Columns, rec.Frame) {
		r.AddError("columns: expected %v, got %v", s.Expect.Columns, rec.Frame)
	}
	if s.Expect.Target != "" && s.Expect.Target != rec.Target {
		r.AddError("target: expected %s, got %s", s.Expect.Target, rec.Target)
	}
	if s.Expect.Warnings != nil {
		want := *s.Expect.Warnings
		if !slices.Equal(want, r.Warnings) {
			r.AddError("warnings: expected %q, got %q", want, r.Warnings)
		}
	}
}

func checkDiagnostics(s *Scenario, got diagnostic.List, r *Result) {
	want := s.Expect.Diagnostics
	if len(want) != len(got) {
		r.AddError("expected %d diagnostics, got %d:\n%s", len(want), len(got), got.String())
		return
	}
	for i, w := range want {
		g := got[i]
		if string(g.Kind) != w.Kind {
			r.AddError("diagnostics[%d]: kind: expected %s, got %s", i, w.Kind, g.Kind)
		}
		if w.Message != "" && w.Message != g.Message {
			r.AddError("diagnostics[%d]: message: expected %q, got %q", i, w.Message, g.Message)
		}
		checkText(r, i, "help", w.Help, g.Help)
		checkText(r, i, "note", w.Note, g.Note)

		if want, ok := expectedSpan(s.Query, w); ok && !sameSpan(want, g.Span) {
			r.AddError("diagnostics[%d]: span: expected %s, got %s", i, want, g.Span)
		}
	}
}

func checkText(r *Result, i int, field, want, got string) {
	switch {
	case want == "":
	case want == absent && got != "":
		r.AddError("diagnostics[%d]: %s: expected none, got %q", i, field, got)
	case want != absent && want != got:
		r.AddError("diagnostics[%d]: %s: expected %q, got %q", i, field, want, got)
	}
}

func expectedSpan(src string, w ExpectedDiagnostic) (ast.Span, bool) {
	if w.At != "" {
		return testutil.FindSpan(src, w.At)
	}
	if w.Span != "" {
		span, err := ast.ParseSpan(w.Span)
		return span, err == nil
	}
	return ast.Span{}, false
}

// sameSpan compares lines and columns. Offsets are ignored because the
// compact "L:C-L:C" form does not carry them.
func sameSpan(a, b ast.Span) bool {
	return a.Start.Line == b.Start.Line && a.Start.Column == b.Start.Column &&
		a.End.Line == b.End.Line && a.End.Column == b.End.Column
}
