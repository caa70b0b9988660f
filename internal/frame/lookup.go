package frame

import (
	"sort"

	"github.com/roach88/pql/internal/types"
)

// Status is the outcome of a frame lookup.
type Status int

const (
	NotFound Status = iota
	Found
	Ambiguous
)

// Match is the result of a frame lookup.
type Match struct {
	Status Status
	Column Column
	Index  int // position in Columns; -1 for inferred columns

	// Inferred is set when the column was not listed but is assumed to be
	// part of a wildcard input.
	Inferred bool

	// Candidates lists the qualified names an ambiguous reference could
	// mean, sorted.
	Candidates []string
}

// Exact resolves a column that is listed explicitly by name:
// `name` or `input.name`. It never infers columns from wildcards.
func (f *Frame) Exact(path []string) Match {
	if f == nil {
		return Match{Status: NotFound, Index: -1}
	}
	switch len(path) {
	case 1:
		name := path[0]
		idx := -1
		inputs := map[string]bool{}
		var cands []string
		for i, c := range f.Columns {
			if c.All || c.Name != name {
				continue
			}
			if !inputs[c.Input] {
				inputs[c.Input] = true
				cands = append(cands, c.Qualified())
			}
			idx = i
		}
		if idx < 0 {
			return Match{Status: NotFound, Index: -1}
		}
		// Computed columns (no input) shadow source columns of the same name.
		if len(inputs) > 1 && !inputs[""] {
			sort.Strings(cands)
			return Match{Status: Ambiguous, Index: -1, Candidates: cands}
		}
		if len(inputs) > 1 {
			for i := len(f.Columns) - 1; i >= 0; i-- {
				if c := f.Columns[i]; !c.All && c.Name == name && c.Input == "" {
					idx = i
					break
				}
			}
		}
		return Match{Status: Found, Column: f.Columns[idx], Index: idx}
	case 2:
		input, name := path[0], path[1]
		for i := len(f.Columns) - 1; i >= 0; i-- {
			c := f.Columns[i]
			if !c.All && c.Input == input && c.Name == name {
				return Match{Status: Found, Column: c, Index: i}
			}
		}
	}
	return Match{Status: NotFound, Index: -1}
}

// Infer resolves a column through a wildcard input: `name` when exactly
// one input is a wildcard, or `input.name` when that input is.
func (f *Frame) Infer(path []string) Match {
	if f == nil {
		return Match{Status: NotFound, Index: -1}
	}
	var wild []Column
	switch len(path) {
	case 1:
		for _, c := range f.Columns {
			if c.All {
				wild = append(wild, c)
			}
		}
	case 2:
		for _, c := range f.Columns {
			if c.All && c.Input == path[0] {
				wild = append(wild, c)
			}
		}
	default:
		return Match{Status: NotFound, Index: -1}
	}
	name := path[len(path)-1]
	switch len(wild) {
	case 0:
		return Match{Status: NotFound, Index: -1}
	case 1:
		all := wild[0]
		return Match{
			Status: Found,
			Index:  -1,
			Column: Column{
				Name:    name,
				Input:   all.Input,
				Target:  all.Target,
				Type:    types.Unknown,
				Grouped: all.Grouped,
			},
			Inferred: true,
		}
	default:
		cands := make([]string, 0, len(wild))
		for _, c := range wild {
			cands = append(cands, Column{Name: name, Input: c.Input}.Qualified())
		}
		sort.Strings(cands)
		return Match{Status: Ambiguous, Index: -1, Candidates: cands}
	}
}

// Suggest returns the qualified name of a listed column whose name is
// close to name, for "did you mean" hints.
func (f *Frame) Suggest(name string) (string, bool) {
	if f == nil || name == "" {
		return "", false
	}
	best, bestDist := "", 3
	for _, c := range f.Columns {
		if c.All || c.Name == "" || c.Name == name {
			continue
		}
		d := editDistance(name, c.Name)
		if d < bestDist && d < len(name) {
			best, bestDist = c.Qualified(), d
		}
	}
	return best, best != ""
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
