// Package catalog describes the relation sources a query may read from.
//
// A Catalog maps table names to their declared columns. Catalogs are
// loaded from YAML, CUE or an existing SQLite database and are read-only
// once built, so one catalog can serve many concurrent compilations.
package catalog

import (
	"fmt"
	"sort"

	"github.com/roach88/pql/internal/types"
)

// Column is a declared column. TypeName uses the type syntax of
// types.Parse; an empty name means the type is unknown.
type Column struct {
	Name     string      `json:"name" yaml:"name"`
	TypeName string      `json:"type,omitempty" yaml:"type,omitempty"`
	Type     *types.Type `json:"-" yaml:"-"`
}

// Table is a named relation source.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Catalog is a set of tables keyed by name.
type Catalog struct {
	tables map[string]*Table
	names  []string
}

// New builds a catalog from tables. Column types are parsed; a later table
// with the same name replaces an earlier one.
func New(tables ...*Table) (*Catalog, error) {
	c := &Catalog{tables: map[string]*Table{}}
	for _, t := range tables {
		if err := c.add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New for static fixtures.
func MustNew(tables ...*Table) *Catalog {
	c, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) add(t *Table) error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	seen := map[string]bool{}
	for i, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("table %s: column %d has no name", t.Name, i)
		}
		if seen[col.Name] {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, col.Name)
		}
		seen[col.Name] = true
		if col.Type == nil {
			parsed, err := parseColumnType(col.TypeName)
			if err != nil {
				return fmt.Errorf("table %s: column %s: %w", t.Name, col.Name, err)
			}
			col.Type = parsed
		}
		out.Columns[i] = col
	}
	if _, exists := c.tables[t.Name]; !exists {
		c.names = append(c.names, t.Name)
		sort.Strings(c.names)
	}
	c.tables[t.Name] = out
	return nil
}

func parseColumnType(name string) (*types.Type, error) {
	if name == "" {
		return types.Unknown, nil
	}
	return types.Parse(name)
}

// Lookup finds a table by name.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.tables[name]
	return t, ok
}

// Names lists the table names, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Len is the number of tables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tables)
}

// Merge returns a catalog holding the tables of c and o; tables of o win.
func (c *Catalog) Merge(o *Catalog) *Catalog {
	out := &Catalog{tables: map[string]*Table{}}
	for _, src := range []*Catalog{c, o} {
		if src == nil {
			continue
		}
		for _, name := range src.names {
			if _, exists := out.tables[name]; !exists {
				out.names = append(out.names, name)
			}
			out.tables[name] = src.tables[name]
		}
	}
	sort.Strings(out.names)
	return out
}
