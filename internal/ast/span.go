package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a point in the query source.
// Offset is a 0-based byte offset; Line and Column are 1-based.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// IsValid reports whether the position points into a source.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open range [Start, End) of the query source.
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// IsValid reports whether the span carries source information.
func (s Span) IsValid() bool {
	return s.Start.IsValid()
}

// Join returns the smallest span covering both s and o.
// An invalid operand is ignored.
func (s Span) Join(o Span) Span {
	if !s.IsValid() {
		return o
	}
	if !o.IsValid() {
		return s
	}
	out := s
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if out.End.Before(o.End) {
		out.End = o.End
	}
	return out
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	if !s.IsValid() || !o.IsValid() {
		return false
	}
	return !o.Start.Before(s.Start) && !s.End.Before(o.End)
}

// String renders the span as "L:C-L:C".
func (s Span) String() string {
	if !s.IsValid() {
		return "-"
	}
	return s.Start.String() + "-" + s.End.String()
}

// ParseSpan parses the "L:C-L:C" form produced by String.
// Offsets are not part of the compact form and are left at zero.
func ParseSpan(text string) (Span, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(text), "-")
	if !ok {
		return Span{}, fmt.Errorf("span %q: expected L:C-L:C", text)
	}
	s, err := parsePosition(start)
	if err != nil {
		return Span{}, fmt.Errorf("span %q: %w", text, err)
	}
	e, err := parsePosition(end)
	if err != nil {
		return Span{}, fmt.Errorf("span %q: %w", text, err)
	}
	return Span{Start: s, End: e}, nil
}

func parsePosition(text string) (Position, error) {
	l, c, ok := strings.Cut(text, ":")
	if !ok {
		return Position{}, fmt.Errorf("position %q: expected L:C", text)
	}
	line, err := strconv.Atoi(l)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: bad line: %w", text, err)
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: bad column: %w", text, err)
	}
	return Position{Line: line, Column: col}, nil
}
