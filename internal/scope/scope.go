// Package scope implements the hierarchical symbol table.
//
// Scopes form a chain from the innermost lexical construct (a lambda body)
// out to the module. Declarations are immutable; declaring a name that
// already exists shadows it without error.
package scope

import (
	"sort"

	"github.com/roach88/pql/internal/ast"
)

// DeclKind classifies declarations.
type DeclKind int

const (
	DeclModule  DeclKind = iota // namespace such as `db` or `std`
	DeclTable                   // relation source from the catalog
	DeclLet                     // `let` binding of a value or relation
	DeclFunc                    // `let` binding of a user function
	DeclParam                   // lambda parameter
	DeclBuiltin                 // std function, operator or transform
)

func (k DeclKind) String() string {
	switch k {
	case DeclModule:
		return "module"
	case DeclTable:
		return "table"
	case DeclLet:
		return "let"
	case DeclFunc:
		return "func"
	case DeclParam:
		return "param"
	case DeclBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Decl is a named entity.
//
// Value is owned by the resolver (resolved IR, closures, std entries);
// scope never inspects it. Members is only set for modules.
type Decl struct {
	Name    string
	Kind    DeclKind
	Span    ast.Span
	Value   any
	Members *Scope

	// Poisoned marks a declaration whose own resolution failed; references
	// to it must not report further errors.
	Poisoned bool
}

// FullName is the dotted name of the declaration within its module chain.
func (d *Decl) FullName(module string) string {
	if module == "" {
		return d.Name
	}
	return module + "." + d.Name
}

// Scope maps names to declarations and links to its parent.
type Scope struct {
	parent *Scope
	label  string
	names  map[string]*Decl
}

// New creates a scope nested in parent. label names the construct for
// debugging ("module", "lambda f", ...).
func New(parent *Scope, label string) *Scope {
	return &Scope{parent: parent, label: label, names: map[string]*Decl{}}
}

// NewModule creates a module declaration whose members live in a fresh
// root scope.
func NewModule(name string) *Decl {
	return &Decl{Name: name, Kind: DeclModule, Members: New(nil, name)}
}

// Parent returns the enclosing scope, nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Label returns the debugging label.
func (s *Scope) Label() string { return s.label }

// Declare binds d under name, shadowing any existing binding.
func (s *Scope) Declare(name string, d *Decl) {
	if d.Name == "" {
		d.Name = name
	}
	s.names[name] = d
}

// Local looks name up in this scope only.
func (s *Scope) Local(name string) (*Decl, bool) {
	d, ok := s.names[name]
	return d, ok
}

// Lookup walks name outward through enclosing scopes.
func (s *Scope) Lookup(name string) (*Decl, *Scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.names[name]; ok {
			return d, cur, true
		}
	}
	return nil, nil, false
}

// Result of resolving a path.
type Result struct {
	Decl *Decl
	// Module is the dotted module prefix the declaration was found under
	// ("db" for `db.artists`, "" for a plain name).
	Module string
	// Rest holds segments left over after reaching a non-module
	// declaration (e.g. `x.a` where x is a let-bound tuple).
	Rest []string
}

// Resolve resolves path: the first segment walks outward, the remaining
// segments descend through module members. It reports false when the
// first segment is unknown, or when a module does not contain the next
// segment; Result.Module then names the deepest module reached.
func (s *Scope) Resolve(path []string) (Result, bool) {
	if len(path) == 0 {
		return Result{}, false
	}
	d, _, ok := s.Lookup(path[0])
	if !ok {
		return Result{}, false
	}
	module := ""
	for i := 1; i < len(path); i++ {
		if d.Kind != DeclModule {
			return Result{Decl: d, Module: module, Rest: path[i:]}, true
		}
		if module == "" {
			module = d.Name
		} else {
			module = module + "." + d.Name
		}
		next, ok := d.Members.Local(path[i])
		if !ok {
			return Result{Decl: d, Module: module, Rest: path[i:]}, false
		}
		d = next
	}
	return Result{Decl: d, Module: module}, true
}

// Names lists every name visible from s, innermost first, without
// duplicates.
func (s *Scope) Names() []string {
	seen := map[string]bool{}
	var out []string
	for cur := s; cur != nil; cur = cur.parent {
		local := make([]string, 0, len(cur.names))
		for n := range cur.names {
			if !seen[n] {
				seen[n] = true
				local = append(local, n)
			}
		}
		sort.Strings(local)
		out = append(out, local...)
	}
	return out
}
