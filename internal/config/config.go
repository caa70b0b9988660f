// Package config reads pql.yaml, the project file that sets the target
// dialect, catalog sources and batch settings for a directory of queries.
//
//	target: sql.postgres
//	catalog:
//	  - schema/warehouse.yaml
//	  - schema/legacy.db
//	strict_catalog: true
//	workers: 4
//	store: .pql/log.db
//
// Relative paths are resolved against the directory holding the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/std"
	"github.com/roach88/pql/internal/target"
)

// FileName is the project file looked up by Find.
const FileName = "pql.yaml"

// Config is the decoded project file.
type Config struct {
	Target        string   `yaml:"target"`
	Catalog       []string `yaml:"catalog"`
	StrictCatalog bool     `yaml:"strict_catalog"`
	IssueTracker  string   `yaml:"issue_tracker"`
	Workers       int      `yaml:"workers"`

	// Store is the SQLite compile log written by `pql batch`. Empty means
	// batches are not logged.
	Store string `yaml:"store"`
}

// Default is the configuration used when no file is found.
func Default() Config {
	return Config{Target: target.Default}
}

// Load reads and validates a project file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a project file held in memory. Paths are
// left as written.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that can be checked without touching disk.
func (c Config) Validate() error {
	if _, err := target.Lookup(c.Target); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

func (c *Config) resolvePaths(dir string) {
	for i, p := range c.Catalog {
		c.Catalog[i] = resolve(dir, p)
	}
	if c.Store != "" {
		c.Store = resolve(dir, c.Store)
	}
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Find looks for FileName in dir and its parents. It returns the path of
// the first file found.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// CompileOptions loads the configured catalogs and returns the options for
// compiler.Compile.
func (c Config) CompileOptions(log *slog.Logger) (compiler.Options, error) {
	lib, err := std.Default()
	if err != nil {
		return compiler.Options{}, fmt.Errorf("load std: %w", err)
	}
	opts := compiler.Options{
		Std:           lib,
		Target:        c.Target,
		StrictCatalog: c.StrictCatalog,
		IssueTracker:  c.IssueTracker,
		Logger:        log,
	}
	if len(c.Catalog) > 0 {
		cat, err := catalog.LoadAll(c.Catalog)
		if err != nil {
			return compiler.Options{}, fmt.Errorf("load catalog: %w", err)
		}
		opts.Catalog = cat
	}
	return opts, nil
}
