// Command racetimer runs the race controller.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/racetimer/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report their own ExitErrors; anything else is a cobra error.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
