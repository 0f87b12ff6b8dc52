package main

import (
	"fmt"
	"os"

	"github.com/claude/repflow/internal/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cmd := cli.NewRootCommand(Version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
