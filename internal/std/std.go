// Package std holds the built-in declaration table: transforms, operators
// and functions with their parameter and return types.
//
// The table is written in CUE (std.cue), validated against the #Function
// and #Param definitions and decoded once. The resulting Library is
// read-only and shared by every compilation.
package std

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pql/internal/types"
)

//go:embed std.cue
var source []byte

// Kind classifies a built-in.
type Kind string

const (
	KindTransform Kind = "transform"
	KindFunction  Kind = "function"
	KindOperator  Kind = "operator"
)

// Param is one declared parameter.
type Param struct {
	Name  string
	Type  *types.Type
	Named bool

	// OneOf restricts a named argument to bare words; such arguments are
	// taken verbatim instead of being resolved.
	OneOf   []string
	Default string
}

// Function is a built-in declaration.
type Function struct {
	Name      string
	Kind      Kind
	Params    []Param
	Return    *types.Type
	SameAs    string
	Aggregate bool
	Window    bool
	Doc       string
}

// FullName is the name as it appears in diagnostics ("std.group").
func (f *Function) FullName() string {
	return "std." + f.Name
}

// Positional returns the positional parameters in declaration order.
func (f *Function) Positional() []Param {
	var out []Param
	for _, p := range f.Params {
		if !p.Named {
			out = append(out, p)
		}
	}
	return out
}

// NamedParam looks up a named parameter.
func (f *Function) NamedParam(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Named && p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Type is the function type over the positional parameters.
func (f *Function) Type() *types.Type {
	var ts []*types.Type
	for _, p := range f.Positional() {
		ts = append(ts, p.Type)
	}
	return types.Func(append(ts, f.Return)...)
}

// Library is a decoded declaration table.
type Library struct {
	funcs map[string]*Function
	names []string
}

// Lookup finds a built-in by its short name ("group").
func (l *Library) Lookup(name string) (*Function, bool) {
	f, ok := l.funcs[name]
	return f, ok
}

// Names lists every built-in, sorted.
func (l *Library) Names() []string {
	return append([]string(nil), l.names...)
}

// LoadError reports a malformed declaration table.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Default returns the embedded library, decoding it on first use.
func Default() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = Parse(source)
	})
	return defaultLib, defaultErr
}

// MustDefault is Default for callers that cannot proceed without std.
func MustDefault() *Library {
	lib, err := Default()
	if err != nil {
		panic(err)
	}
	return lib
}

type rawParam struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Named   bool     `json:"named"`
	OneOf   []string `json:"one_of"`
	Default string   `json:"default"`
}

type rawFunction struct {
	Kind      string     `json:"kind"`
	Params    []rawParam `json:"params"`
	Return    string     `json:"return"`
	SameAs    string     `json:"same_as"`
	Aggregate bool       `json:"aggregate"`
	Window    bool       `json:"window"`
	Doc       string     `json:"doc"`
}

// Parse compiles a CUE declaration table. The source must define a
// `functions` struct conforming to #Function.
func Parse(src []byte) (*Library, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("std.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	fns := v.LookupPath(cue.ParsePath("functions"))
	if !fns.Exists() {
		return nil, &LoadError{Field: "functions", Message: "functions is required", Pos: v.Pos()}
	}
	iter, err := fns.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	lib := &Library{funcs: map[string]*Function{}}
	for iter.Next() {
		name := iter.Label()
		var raw rawFunction
		if err := iter.Value().Decode(&raw); err != nil {
			return nil, formatCUEError(err)
		}
		fn, err := buildFunction(name, raw)
		if err != nil {
			return nil, &LoadError{Field: "functions." + name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		lib.funcs[name] = fn
		lib.names = append(lib.names, name)
	}
	sort.Strings(lib.names)
	return lib, nil
}

func buildFunction(name string, raw rawFunction) (*Function, error) {
	fn := &Function{
		Name:      name,
		Kind:      Kind(raw.Kind),
		SameAs:    raw.SameAs,
		Aggregate: raw.Aggregate,
		Window:    raw.Window,
		Doc:       raw.Doc,
	}
	ret, err := parseType(raw.Return)
	if err != nil {
		return nil, err
	}
	fn.Return = ret

	seen := map[string]bool{}
	for _, rp := range raw.Params {
		if seen[rp.Name] {
			return nil, fmt.Errorf("duplicate param %q", rp.Name)
		}
		seen[rp.Name] = true
		t, err := parseType(rp.Type)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", rp.Name, err)
		}
		fn.Params = append(fn.Params, Param{
			Name:    rp.Name,
			Type:    t,
			Named:   rp.Named,
			OneOf:   rp.OneOf,
			Default: rp.Default,
		})
	}
	if fn.SameAs != "" && !seen[fn.SameAs] {
		return nil, fmt.Errorf("same_as names unknown param %q", fn.SameAs)
	}
	return fn, nil
}

func parseType(text string) (*types.Type, error) {
	if text == "" {
		return types.Unknown, nil
	}
	return types.Parse(text)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
