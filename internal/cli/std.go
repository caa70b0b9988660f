package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/std"
)

// StdOptions holds flags for the std command.
type StdOptions struct {
	*RootOptions
	Kind string // filter by kind
}

// FunctionInfo describes one built-in in command output.
type FunctionInfo struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Type      string      `json:"type"`
	Params    []ParamInfo `json:"params"`
	Aggregate bool        `json:"aggregate,omitempty"`
	Window    bool        `json:"window,omitempty"`
	Doc       string      `json:"doc,omitempty"`
}

// ParamInfo describes one declared parameter.
type ParamInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Named   bool     `json:"named,omitempty"`
	OneOf   []string `json:"one_of,omitempty"`
	Default string   `json:"default,omitempty"`
}

// NewStdCommand creates the std command.
func NewStdCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "std [name]",
		Short: "List the standard library",
		Long: `List the built-in transforms, functions and operators with their
types, or describe one of them.

Examples:
  pql std
  pql std --kind transform
  pql std group`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStd(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list built-ins of this kind (transform|function|operator)")

	return cmd
}

func runStd(opts *StdOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	lib, err := std.Default()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("load std: %v", err), nil)
	}

	if len(args) == 1 {
		f, ok := lib.Lookup(strings.TrimPrefix(args[0], "std."))
		if !ok {
			return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown built-in: %s", args[0]), nil)
		}
		info := describe(f)
		if out.JSON() {
			return out.Success(info)
		}
		writeFunction(out, info)
		return nil
	}

	switch std.Kind(opts.Kind) {
	case "", std.KindTransform, std.KindFunction, std.KindOperator:
	default:
		return out.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid kind %q: must be transform, function or operator", opts.Kind), nil)
	}

	infos := []FunctionInfo{}
	for _, name := range lib.Names() {
		f, _ := lib.Lookup(name)
		if opts.Kind != "" && string(f.Kind) != opts.Kind {
			continue
		}
		infos = append(infos, describe(f))
	}

	if out.JSON() {
		return out.Success(infos)
	}
	tw := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Kind, info.Type)
	}
	return tw.Flush()
}

func describe(f *std.Function) FunctionInfo {
	info := FunctionInfo{
		Name:      f.FullName(),
		Kind:      string(f.Kind),
		Type:      f.Type().String(),
		Params:    make([]ParamInfo, 0, len(f.Params)),
		Aggregate: f.Aggregate,
		Window:    f.Window,
		Doc:       f.Doc,
	}
	for _, p := range f.Params {
		info.Params = append(info.Params, ParamInfo{
			Name:    p.Name,
			Type:    p.Type.String(),
			Named:   p.Named,
			OneOf:   p.OneOf,
			Default: p.Default,
		})
	}
	return info
}

func writeFunction(out *OutputFormatter, info FunctionInfo) {
	w := out.Writer
	fmt.Fprintf(w, "%s (%s)\n", info.Name, info.Kind)
	fmt.Fprintf(w, "  type: %s\n", info.Type)
	for _, p := range info.Params {
		switch {
		case p.Named && len(p.OneOf) > 0:
			fmt.Fprintf(w, "  %s:%s (default %s)\n", p.Name, strings.Join(p.OneOf, "|"), p.Default)
		case p.Named:
			fmt.Fprintf(w, "  %s: %s (named)\n", p.Name, p.Type)
		default:
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Type)
		}
	}
	if info.Aggregate {
		fmt.Fprintln(w, "  aggregate")
	}
	if info.Window {
		fmt.Fprintln(w, "  window")
	}
	if info.Doc != "" {
		fmt.Fprintf(w, "  %s\n", info.Doc)
	}
}
