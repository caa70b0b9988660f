// Package frame tracks relation lineage: which columns a relation exposes
// at a point in a pipeline, under which input alias, and which expression
// produced each of them.
//
// Frames are values. Every operation returns a new Frame and leaves its
// receiver untouched, so a frame captured by an earlier pipeline step stays
// valid while later steps evolve their own copies.
package frame

import (
	"strings"

	"github.com/roach88/pql/internal/types"
)

// Input is a relation that contributed columns to the frame.
type Input struct {
	Name  string `json:"name"`            // alias that qualifies its columns
	Table string `json:"table,omitempty"` // source table (`db.artists`), empty for derived inputs
	ID    int    `json:"id"`              // IR id of the source expression
}

// Column is the lineage record of one frame column.
type Column struct {
	Name   string      `json:"name,omitempty"`  // display name, empty for unnamed expressions
	Input  string      `json:"input,omitempty"` // qualifying input alias, empty for computed columns
	Target int         `json:"target"`          // IR id of the producing expression
	Type   *types.Type `json:"-"`

	// All stands in for every column of Input that is not listed
	// explicitly (`input.*`): the table's columns are unknown.
	All bool `json:"all,omitempty"`

	// Grouped marks a non-key column inside a `group` body: it denotes the
	// sub-rows of the current group rather than a single value.
	Grouped bool `json:"grouped,omitempty"`
}

// Qualified renders the column as it would be written in a query.
func (c Column) Qualified() string {
	name := c.Name
	if c.All {
		name = "*"
	}
	if name == "" {
		name = "?"
	}
	if c.Input == "" {
		return name
	}
	return c.Input + "." + name
}

func (c Column) sameAs(o Column) bool {
	if c.All || o.All {
		return c.All && o.All && c.Input == o.Input
	}
	if c.Name == "" || o.Name == "" {
		return c.Target == o.Target
	}
	return c.Name == o.Name && c.Input == o.Input
}

// Frame is the ordered column set of a relation expression.
type Frame struct {
	Inputs  []Input  `json:"inputs"`
	Columns []Column `json:"columns"`
}

// Begin seeds a frame from a single source with known columns. Each
// column is qualified by the input.
func Begin(in Input, cols []Column) *Frame {
	f := &Frame{Inputs: []Input{in}}
	for _, c := range cols {
		c.Input = in.Name
		if c.Target == 0 {
			c.Target = in.ID
		}
		f.Columns = append(f.Columns, c)
	}
	return f
}

// Wildcard seeds a frame from a source whose columns are unknown.
func Wildcard(in Input) *Frame {
	return Begin(in, []Column{{All: true, Type: types.Unknown}})
}

func (f *Frame) clone() *Frame {
	out := &Frame{
		Inputs:  make([]Input, len(f.Inputs)),
		Columns: make([]Column, len(f.Columns)),
	}
	copy(out.Inputs, f.Inputs)
	copy(out.Columns, f.Columns)
	return out
}

// Project replaces the column set (select, aggregate).
func (f *Frame) Project(cols []Column) *Frame {
	out := f.clone()
	out.Columns = append([]Column(nil), cols...)
	return out
}

// Extend appends columns (derive). A named column replaces an existing
// column of the same name and qualifier.
func (f *Frame) Extend(cols []Column) *Frame {
	out := f.clone()
	for _, c := range cols {
		replaced := false
		if c.Name != "" && !c.All {
			for i, existing := range out.Columns {
				if !existing.All && existing.Name == c.Name && existing.Input == c.Input {
					out.Columns[i] = c
					replaced = true
					break
				}
			}
		}
		if !replaced {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// Join concatenates the inputs and columns of two frames.
func Join(left, right *Frame) *Frame {
	out := left.clone()
	out.Inputs = append(out.Inputs, right.Inputs...)
	out.Columns = append(out.Columns, right.Columns...)
	return out
}

// Rename collapses every input into a single input called alias and
// requalifies all columns under it (`from a = ...`, `select {a = this}`).
func (f *Frame) Rename(alias string, id int) *Frame {
	table := ""
	if len(f.Inputs) == 1 {
		table = f.Inputs[0].Table
	}
	out := &Frame{Inputs: []Input{{Name: alias, Table: table, ID: id}}}
	for _, c := range f.Columns {
		c.Input = alias
		out.Columns = append(out.Columns, c)
	}
	return out
}

// Group builds the frame seen inside a `group` body: keys keep one value
// per group, every other column is marked Grouped.
func (f *Frame) Group(keys []Column) *Frame {
	out := &Frame{Inputs: append([]Input(nil), f.Inputs...)}
	for _, k := range keys {
		k.Grouped = false
		out.Columns = append(out.Columns, k)
	}
	for _, c := range f.Columns {
		if containsColumn(keys, c) {
			continue
		}
		c.Grouped = true
		out.Columns = append(out.Columns, c)
	}
	return out
}

// Fold turns the result of a group body back into an ungrouped relation:
// the keys followed by the body's columns (keys are not repeated).
func Fold(keys []Column, inner *Frame) *Frame {
	out := &Frame{Inputs: append([]Input(nil), inner.Inputs...)}
	for _, k := range keys {
		k.Grouped = false
		out.Columns = append(out.Columns, k)
	}
	for _, c := range inner.Columns {
		if containsColumn(keys, c) {
			continue
		}
		c.Grouped = false
		out.Columns = append(out.Columns, c)
	}
	return out
}

// Partitions reports whether c can key a group nested in the group whose
// body f is. A sub-row column repartitions the rows when it is computed or
// comes from an input that keys the enclosing group; sub-rows of any other
// joined input are not classified.
func (f *Frame) Partitions(c Column) bool {
	if !c.Grouped || c.Input == "" {
		return true
	}
	keyed := map[string]bool{}
	for _, k := range f.Columns {
		if !k.Grouped && !k.All && k.Input != "" {
			keyed[k.Input] = true
		}
	}
	return len(keyed) == 0 || keyed[c.Input]
}

func containsColumn(cols []Column, c Column) bool {
	for _, k := range cols {
		if k.sameAs(c) {
			return true
		}
	}
	return false
}

// HasInput reports whether name is one of the frame's input aliases.
func (f *Frame) HasInput(name string) bool {
	if f == nil {
		return false
	}
	for _, in := range f.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

// InputColumns returns the columns qualified by input, in frame order.
func (f *Frame) InputColumns(input string) []Column {
	var out []Column
	for _, c := range f.Columns {
		if c.Input == input {
			out = append(out, c)
		}
	}
	return out
}

// IsOpen reports whether the frame contains wildcard columns.
func (f *Frame) IsOpen() bool {
	for _, c := range f.Columns {
		if c.All {
			return true
		}
	}
	return false
}

// Type returns the relation type described by the frame.
func (f *Frame) Type() *types.Type {
	var fields []types.Field
	open := false
	for _, c := range f.Columns {
		if c.All {
			open = true
			continue
		}
		t := c.Type
		if t == nil {
			t = types.Unknown
		}
		fields = append(fields, types.Field{Name: c.Name, Type: t})
	}
	return types.RelationOf(fields, open)
}

// String renders the column list as `[a.x, a.*, total]`.
func (f *Frame) String() string {
	if f == nil {
		return "[]"
	}
	parts := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		parts[i] = c.Qualified()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
