package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// LoadError reports a catalog file that could not be read.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error { return e.Err }

// document is the file layout shared by the YAML and CUE formats:
//
//	tables:
//	  employees:
//	    - {name: id, type: int}
//	    - {name: country, type: text}
type document struct {
	Tables map[string][]Column `json:"tables" yaml:"tables"`
}

func (d document) build(path string) (*Catalog, error) {
	tables := make([]*Table, 0, len(d.Tables))
	for name, cols := range d.Tables {
		tables = append(tables, &Table{Name: name, Columns: cols})
	}
	c, err := New(tables...)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error(), Err: err}
	}
	return c, nil
}

// Load reads a catalog file, choosing the format by extension:
// .yaml/.yml, .cue, or .db/.sqlite/.sqlite3 for a SQLite database.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Message: "failed to read file", Err: err}
		}
		return parseYAML(path, data)
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Message: "failed to read file", Err: err}
		}
		return parseCUE(path, data)
	case ".db", ".sqlite", ".sqlite3":
		return FromSQLite(path)
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported catalog format %q", filepath.Ext(path))}
	}
}

// LoadAll loads and merges several catalog files; later files win.
func LoadAll(paths []string) (*Catalog, error) {
	out, _ := New()
	for _, p := range paths {
		c, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = out.Merge(c)
	}
	return out, nil
}

// ParseYAML reads the YAML catalog format.
func ParseYAML(data []byte) (*Catalog, error) {
	return parseYAML("", data)
}

func parseYAML(path string, data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}
	return doc.build(path)
}

// ParseCUE reads the CUE catalog format. The file is unified with the
// catalog schema before decoding, so misspelled fields are rejected.
func ParseCUE(data []byte) (*Catalog, error) {
	return parseCUE("", data)
}

func parseCUE(path string, data []byte) (*Catalog, error) {
	name := path
	if name == "" {
		name = "catalog.cue"
	}
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueLoadError(path, err)
	}
	v := schema.Unify(ctx.CompileBytes(data, cue.Filename(name)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(path, err)
	}
	var doc document
	if err := v.Decode(&doc); err != nil {
		return nil, cueLoadError(path, err)
	}
	return doc.build(path)
}

func cueLoadError(path string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: path, Message: err.Error(), Err: err}
	}
	first := errs[0]
	le := &LoadError{Path: path, Message: first.Error(), Err: err}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
