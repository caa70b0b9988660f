// Command pql resolves PRQL queries against a table catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pql/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	if !exitErr.Reported {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitErr.Code)
}
