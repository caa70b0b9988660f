package diagnostic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// List is an ordered collection of diagnostics. A non-empty List is an error.
type List []*Diagnostic

// Error summarises the list; the first entry is spelled out.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// Add appends diagnostics.
func (l *List) Add(d ...*Diagnostic) {
	*l = append(*l, d...)
}

// HasErrors reports whether any entry has error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sorted returns the list ordered by primary span (diagnostics without a
// span keep their relative order at the end).
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Span, out[j].Span
		if !a.IsValid() || !b.IsValid() {
			return a.IsValid() && !b.IsValid()
		}
		return a.Start.Before(b.Start)
	})
	return out
}

// Kinds returns the kind of every entry, in order.
func (l List) Kinds() []Kind {
	out := make([]Kind, len(l))
	for i, d := range l {
		out[i] = d.Kind
	}
	return out
}

// String renders every entry in the stable text form.
func (l List) String() string {
	var b strings.Builder
	for i, d := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		d.Format(&b)
	}
	return b.String()
}

// From extracts diagnostics from an error chain. The second result is false
// when err carries none.
func From(err error) (List, bool) {
	if err == nil {
		return nil, false
	}
	var list List
	if errors.As(err, &list) {
		return list, len(list) > 0
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return List{d}, true
	}
	return nil, false
}
