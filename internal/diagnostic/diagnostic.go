// Package diagnostic defines the records the resolver reports to callers.
//
// A Diagnostic carries a primary span and label, optional secondary labels,
// help and note text. Rendering (boxed source excerpts, colours) is left to
// consumers; this package only guarantees the record shape and a stable
// plain-text form for logs and golden files.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pql/internal/ast"
)

// Kind classifies a diagnostic.
type Kind string

const (
	UnknownName              Kind = "UnknownName"
	AmbiguousName            Kind = "AmbiguousName"
	TypeMismatch             Kind = "TypeMismatch"
	NotAFunction             Kind = "NotAFunction"
	NotAPipeline             Kind = "NotAPipeline"
	MissingArgument          Kind = "MissingArgument"
	MalformedRelationLiteral Kind = "MalformedRelationLiteral"
	InterpolationSyntaxError Kind = "InterpolationSyntaxError"
	InvalidArgument          Kind = "InvalidArgument"
	InternalCompilerError    Kind = "InternalCompilerError"
)

// Error codes, stable across releases.
const (
	ErrCodeUnknownName       = "E201"
	ErrCodeAmbiguousName     = "E202"
	ErrCodeTypeMismatch      = "E203"
	ErrCodeNotAFunction      = "E204"
	ErrCodeNotAPipeline      = "E205"
	ErrCodeMissingArgument   = "E206"
	ErrCodeMalformedRelation = "E207"
	ErrCodeInterpolation     = "E208"
	ErrCodeInvalidArgument   = "E209"
	ErrCodeInternal          = "E299"
)

var kindCodes = map[Kind]string{
	UnknownName:              ErrCodeUnknownName,
	AmbiguousName:            ErrCodeAmbiguousName,
	TypeMismatch:             ErrCodeTypeMismatch,
	NotAFunction:             ErrCodeNotAFunction,
	NotAPipeline:             ErrCodeNotAPipeline,
	MissingArgument:          ErrCodeMissingArgument,
	MalformedRelationLiteral: ErrCodeMalformedRelation,
	InterpolationSyntaxError: ErrCodeInterpolation,
	InvalidArgument:          ErrCodeInvalidArgument,
	InternalCompilerError:    ErrCodeInternal,
}

// Code returns the error code of the kind.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return "E200"
}

// Kinds lists every kind in code order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindCodes))
	for k := range kindCodes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// Severity levels.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Label attaches a message to a span.
type Label struct {
	Span    ast.Span `json:"span"`
	Message string   `json:"message"`
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind      Kind     `json:"kind"`
	Code      string   `json:"code"`
	Severity  Severity `json:"severity"`
	Span      ast.Span `json:"span"`
	Message   string   `json:"message"`
	Secondary []Label  `json:"secondary,omitempty"`
	Help      string   `json:"help,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// New creates an error diagnostic.
func New(kind Kind, span ast.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Code:     kind.Code(),
		Severity: SeverityError,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Internal creates an InternalCompilerError. The message always points at
// the issue tracker so users can report or follow the defect.
func Internal(span ast.Span, tracker string) *Diagnostic {
	return New(InternalCompilerError, span, "internal compiler error; tracked at %s", tracker)
}

// WithHelp sets the help text.
func (d *Diagnostic) WithHelp(format string, args ...any) *Diagnostic {
	d.Help = fmt.Sprintf(format, args...)
	return d
}

// WithNote sets the note text.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Note = note
	return d
}

// WithLabel appends a secondary label.
func (d *Diagnostic) WithLabel(span ast.Span, format string, args ...any) *Diagnostic {
	d.Secondary = append(d.Secondary, Label{Span: span, Message: fmt.Sprintf(format, args...)})
	return d
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s %s at %s: %s", d.Code, d.Kind, d.Span, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Code, d.Kind, d.Message)
}

// Format writes the stable multi-line plain-text form used in logs and
// golden files.
func (d *Diagnostic) Format(b *strings.Builder) {
	fmt.Fprintf(b, "%s[%s] %s: %s\n", d.Severity, d.Code, d.Kind, d.Message)
	fmt.Fprintf(b, "  --> %s\n", d.Span)
	for _, l := range d.Secondary {
		fmt.Fprintf(b, "  --> %s: %s\n", l.Span, l.Message)
	}
	if d.Help != "" {
		fmt.Fprintf(b, "  help: %s\n", d.Help)
	}
	if d.Note != "" {
		fmt.Fprintf(b, "  note: %s\n", d.Note)
	}
}
