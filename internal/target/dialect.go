package target

import (
	"fmt"
	"slices"
	"sort"
)

// Default is the dialect used when neither the query nor the configuration
// names one.
const Default = "sql.generic"

// Dialect is a target descriptor.
type Dialect struct {
	Name string

	// ParamStyle is the placeholder syntax for `$n` query parameters.
	ParamStyle ParamStyle

	FullJoin  bool
	Intervals bool
	Regex     bool
}

// ParamStyle is how query parameters are written in the generated SQL.
type ParamStyle int

const (
	ParamDollar   ParamStyle = iota // $1
	ParamQuestion                   // ?
	ParamAt                         // @p1
)

func (p ParamStyle) String() string {
	switch p {
	case ParamDollar:
		return "dollar"
	case ParamQuestion:
		return "question"
	case ParamAt:
		return "at"
	default:
		return "unknown"
	}
}

var dialects = map[string]Dialect{
	"sql.generic":   {Name: "sql.generic", ParamStyle: ParamDollar, FullJoin: true, Intervals: true, Regex: true},
	"sql.ansi":      {Name: "sql.ansi", ParamStyle: ParamQuestion, FullJoin: true, Intervals: true, Regex: true},
	"sql.postgres":  {Name: "sql.postgres", ParamStyle: ParamDollar, FullJoin: true, Intervals: true, Regex: true},
	"sql.duckdb":    {Name: "sql.duckdb", ParamStyle: ParamDollar, FullJoin: true, Intervals: true, Regex: true},
	"sql.sqlite":    {Name: "sql.sqlite", ParamStyle: ParamQuestion, FullJoin: false, Intervals: false, Regex: false},
	"sql.mysql":     {Name: "sql.mysql", ParamStyle: ParamQuestion, FullJoin: false, Intervals: true, Regex: true},
	"sql.mssql":     {Name: "sql.mssql", ParamStyle: ParamAt, FullJoin: true, Intervals: true, Regex: false},
	"sql.bigquery":  {Name: "sql.bigquery", ParamStyle: ParamAt, FullJoin: true, Intervals: true, Regex: true},
	"sql.snowflake": {Name: "sql.snowflake", ParamStyle: ParamQuestion, FullJoin: true, Intervals: true, Regex: true},
	"sql.clickhouse": {
		Name: "sql.clickhouse", ParamStyle: ParamQuestion, FullJoin: true, Intervals: true, Regex: true,
	},
}

// Lookup returns the dialect registered under name. The empty name selects
// Default.
func Lookup(name string) (Dialect, error) {
	if name == "" {
		name = Default
	}
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("unknown target %q, expected one of %v", name, Names())
	}
	return d, nil
}

// Names lists the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether name is a registered dialect.
func Supports(name string) bool {
	return slices.Contains(Names(), name)
}
