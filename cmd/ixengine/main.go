// Command ixengine validates, runs and inspects page interaction documents.
package main

import (
	"os"

	"github.com/roach88/ixengine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
