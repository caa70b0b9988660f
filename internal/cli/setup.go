package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/config"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/engine"
)

// QueryExt is the extension of query files picked up from directories.
const QueryExt = ".prql"

// stdinName is the job name of a query read from standard input.
const stdinName = "<stdin>"

// compileFlags are the per-command overrides of pql.yaml.
type compileFlags struct {
	Target  string
	Strict  bool
	Catalog []string
	Workers int
}

func (c *compileFlags) register(cmd *cobra.Command, workers bool) {
	cmd.Flags().StringVarP(&c.Target, "target", "t", "", "target dialect (overrides pql.yaml)")
	cmd.Flags().BoolVar(&c.Strict, "strict", false, "reject tables missing from the catalog")
	cmd.Flags().StringSliceVar(&c.Catalog, "catalog", nil, "additional catalog file (yaml, cue or sqlite)")
	if workers {
		cmd.Flags().IntVarP(&c.Workers, "workers", "j", 0, "parallel compilations (default: pql.yaml or GOMAXPROCS)")
	}
}

// apply layers the flags over cfg. Flag catalog paths are relative to the
// working directory.
func (c *compileFlags) apply(cfg *config.Config) error {
	if c.Target != "" {
		cfg.Target = c.Target
	}
	if c.Strict {
		cfg.StrictCatalog = true
	}
	cfg.Catalog = append(cfg.Catalog, c.Catalog...)
	if c.Workers != 0 {
		cfg.Workers = c.Workers
	}
	return cfg.Validate()
}

// env is what every command needs before it does any work.
type env struct {
	out *OutputFormatter
	log *slog.Logger
	cfg config.Config
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger writes structured logs to w: warnings and errors only, or
// everything with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config, or the nearest pql.yaml, or the defaults.
func loadConfig(opts *RootOptions) (config.Config, string, error) {
	path := opts.Config
	if path == "" {
		found, ok := config.Find(".")
		if !ok {
			return config.Default(), "", nil
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	return cfg, path, nil
}

// newEnv prepares output, logging and configuration. Errors are already
// reported through the formatter.
func newEnv(opts *RootOptions, flags *compileFlags, cmd *cobra.Command) (*env, error) {
	e := &env{out: newFormatter(opts, cmd)}
	e.log = newLogger(opts, e.out.GetErrWriter())

	cfg, path, err := loadConfig(opts)
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if flags != nil {
		if err := flags.apply(&cfg); err != nil {
			return nil, e.out.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
	}
	e.cfg = cfg
	if path != "" {
		e.out.VerboseLog("Using config %s", path)
	}
	return e, nil
}

// compileOptions loads std and the configured catalogs.
func (e *env) compileOptions() (compiler.Options, error) {
	opts, err := e.cfg.CompileOptions(e.log)
	if err != nil {
		return compiler.Options{}, e.out.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	if opts.Catalog != nil {
		e.out.VerboseLog("Loaded %d catalog table(s)", opts.Catalog.Len())
	}
	return opts, nil
}

// collectJobs reads the query files named by paths. Directories contribute
// every *.prql file below them in lexical order; "-" reads standard input.
func collectJobs(paths []string, stdin io.Reader) ([]engine.Job, error) {
	var jobs []engine.Job
	add := func(name string, data []byte) {
		jobs = append(jobs, engine.Job{Name: name, Source: normalizeNewlines(data)})
	}

	for _, p := range paths {
		if p == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			add(stdinName, data)
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			add(p, data)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != QueryExt {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			add(path, data)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// commandContext is the command's context, or Background when the command
// was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func normalizeNewlines(data []byte) string {
	return strings.ReplaceAll(string(data), "\r\n", "\n")
}

// readFailure maps a file error to an exit error.
func (e *env) readFailure(err error) error {
	code := ErrCodeReadFailed
	if errors.Is(err, fs.ErrNotExist) {
		code = ErrCodeNotFound
	}
	return e.out.Fail(ExitCommandError, code, err.Error(), nil)
}

// writeDiagnostics renders a failed query in text form.
func writeDiagnostics(w io.Writer, name string, list diagnostic.List) {
	fmt.Fprintf(w, "%s:\n", name)
	for _, line := range strings.SplitAfter(list.String(), "\n") {
		if line == "" {
			continue
		}
		if line == "\n" {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "  %s", line)
	}
}
