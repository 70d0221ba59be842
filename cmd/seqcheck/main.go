// Command seqcheck checks DLT log message streams against sequences.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seqcheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seqcheck:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
