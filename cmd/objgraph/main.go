// Command objgraph translates, runs and tests object graph queries.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/objgraph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own failures; cobra usage errors are not
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
