package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/ir"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	compileFlags

	// IR prints the resolved module as canonical JSON in text mode.
	IR bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Resolve one query and print its frame",
		Long: `Resolve one query and print its compilation id, target dialect,
output columns and portability warnings.

The file is PRQL text, or a parsed AST in JSON (.json) or YAML
(.yaml, .yml). Use - to read PRQL text from standard input.

Exit codes:
  0 - The query resolved
  1 - The query has diagnostics
  2 - Command error (missing file, bad config, bad catalog)

Examples:
  pql resolve queries/top_artists.prql
  pql resolve --target sql.sqlite --ir query.prql
  pql resolve --format json ast.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	opts.compileFlags.register(cmd, false)
	cmd.Flags().BoolVar(&opts.IR, "ir", false, "print the resolved module as canonical JSON")

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, &opts.compileFlags, cmd)
	if err != nil {
		return err
	}
	copts, err := e.compileOptions()
	if err != nil {
		return err
	}

	name := path
	var (
		res   *compiler.Result
		diags diagnostic.List
	)
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		mod, err := decodeAST(path)
		if err != nil {
			return e.readFailure(err)
		}
		e.out.VerboseLog("Decoded AST from %s", path)
		res, diags = compiler.Compile(mod, copts)
	default:
		src, err := readQuery(path, cmd.InOrStdin())
		if err != nil {
			return e.readFailure(err)
		}
		if path == "-" {
			name = stdinName
		}
		res, err = compiler.CompileSource(src, copts)
		diags = compiler.Diagnostics(err)
	}

	if len(diags) > 0 {
		return reportDiagnostics(e.out, name, diags)
	}

	if e.out.JSON() {
		return e.out.Success(res.Doc())
	}
	w := e.out.Writer
	fmt.Fprintf(w, "id: %s\n", res.ID)
	fmt.Fprintf(w, "target: %s\n", res.Dialect.Name)
	fmt.Fprintf(w, "frame: %s\n", res.Frame)
	writeWarnings(w, res.Portability.Warnings)
	if opts.IR {
		data, err := ir.MarshalCanonical(res.Module.Doc())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render module", err)
		}
		fmt.Fprintf(w, "%s\n", data)
	}
	return nil
}

func decodeAST(path string) (*ast.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".json" {
		return ast.DecodeJSON(data)
	}
	return ast.DecodeYAML(data)
}

func readQuery(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return normalizeNewlines(data), nil
}

// reportDiagnostics writes the diagnostics of one query and returns the
// compile failure exit error.
func reportDiagnostics(out *OutputFormatter, name string, diags diagnostic.List) error {
	message := fmt.Sprintf("%s: %d diagnostic(s)", name, len(diags))
	if out.JSON() {
		return out.Fail(ExitFailure, ErrCodeCompile, message, diags)
	}
	writeDiagnostics(out.Writer, name, diags)
	return reportedError(ExitFailure, message)
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		fmt.Fprintln(w, "warnings: none")
		return
	}
	fmt.Fprintln(w, "warnings:")
	for _, msg := range warnings {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}
