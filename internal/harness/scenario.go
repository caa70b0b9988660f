package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/catalog"
)

// Scenario is one acceptance case.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Catalog declares tables inline, keyed by table name.
	Catalog map[string][]catalog.Column `yaml:"catalog,omitempty"`

	// CatalogFiles are loaded with catalog.LoadAll; inline tables win.
	CatalogFiles []string `yaml:"catalog_files,omitempty"`

	Target        string `yaml:"target,omitempty"`
	StrictCatalog bool   `yaml:"strict_catalog,omitempty"`
	IssueTracker  string `yaml:"issue_tracker,omitempty"`

	// Exactly one of Query and QueryFile is set. LoadScenario reads
	// QueryFile into Query.
	Query     string `yaml:"query,omitempty"`
	QueryFile string `yaml:"query_file,omitempty"`

	// Session fixes the batch session id.
	Session string `yaml:"session,omitempty"`

	Expect Expect `yaml:"expect"`

	// Golden set to false skips the golden file comparison.
	Golden *bool `yaml:"golden,omitempty"`
}

// WantsGolden reports whether the scenario has a golden file.
func (s *Scenario) WantsGolden() bool {
	return s.Golden == nil || *s.Golden
}

// Expect is what the compiler must produce. A scenario expects either
// diagnostics or columns.
type Expect struct {
	Diagnostics []ExpectedDiagnostic `yaml:"diagnostics,omitempty"`

	Columns []string `yaml:"columns,omitempty"`
	Target  string   `yaml:"target,omitempty"`

	// Warnings, when present, must match the portability report exactly;
	// an empty list asserts a portable query.
	Warnings *[]string `yaml:"warnings,omitempty"`
}

// ExpectedDiagnostic matches one reported diagnostic. Empty fields are not
// checked, except that Help and Note must be empty when set to "-".
type ExpectedDiagnostic struct {
	Kind    string `yaml:"kind"`
	Message string `yaml:"message,omitempty"`
	At      string `yaml:"at,omitempty"`
	Span    string `yaml:"span,omitempty"`
	Help    string `yaml:"help,omitempty"`
	Note    string `yaml:"note,omitempty"`
}

// LoadScenario reads a scenario file. Relative query and catalog paths
// are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.CatalogFiles {
		if !filepath.IsAbs(p) {
			scenario.CatalogFiles[i] = filepath.Join(base, p)
		}
	}
	if scenario.QueryFile != "" {
		qpath := scenario.QueryFile
		if !filepath.IsAbs(qpath) {
			qpath = filepath.Join(base, qpath)
		}
		q, err := os.ReadFile(qpath)
		if err != nil {
			return nil, fmt.Errorf("failed to read query file: %w", err)
		}
		if scenario.Query != "" {
			return nil, fmt.Errorf("invalid scenario: query and query_file are mutually exclusive")
		}
		scenario.Query = strings.ReplaceAll(string(q), "\r\n", "\n")
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir reads every .yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	seen := map[string]string{}
	var out []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", p, s.Name, prev)
		}
		seen[s.Name] = p
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query or query_file is required")
	}

	hasDiags := len(s.Expect.Diagnostics) > 0
	hasCols := len(s.Expect.Columns) > 0
	switch {
	case hasDiags && hasCols:
		return fmt.Errorf("expect: diagnostics and columns are mutually exclusive")
	case !hasDiags && !hasCols:
		return fmt.Errorf("expect: one of diagnostics or columns is required")
	case hasDiags && (s.Expect.Target != "" || s.Expect.Warnings != nil):
		return fmt.Errorf("expect: target and warnings only apply to successful compilations")
	}

	for i, d := range s.Expect.Diagnostics {
		if d.Kind == "" {
			return fmt.Errorf("expect.diagnostics[%d]: kind is required", i)
		}
		if d.At != "" && d.Span != "" {
			return fmt.Errorf("expect.diagnostics[%d]: at and span are mutually exclusive", i)
		}
		if d.At != "" && !strings.Contains(s.Query, d.At) {
			return fmt.Errorf("expect.diagnostics[%d]: %q does not occur in the query", i, d.At)
		}
		if d.Span != "" {
			if _, err := ast.ParseSpan(d.Span); err != nil {
				return fmt.Errorf("expect.diagnostics[%d]: %w", i, err)
			}
		}
	}

	for name, cols := range s.Catalog {
		if len(cols) == 0 {
			return fmt.Errorf("catalog.%s: at least one column is required", name)
		}
	}
	return nil
}

// catalog builds the scenario catalog.
func (s *Scenario) catalog() (*catalog.Catalog, error) {
	names := make([]string, 0, len(s.Catalog))
	for name := range s.Catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*catalog.Table, 0, len(names))
	for _, name := range names {
		tables = append(tables, &catalog.Table{Name: name, Columns: s.Catalog[name]})
	}
	inline, err := catalog.New(tables...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if len(s.CatalogFiles) == 0 {
		return inline, nil
	}
	files, err := catalog.LoadAll(s.CatalogFiles)
	if err != nil {
		return nil, err
	}
	return files.Merge(inline), nil
}
