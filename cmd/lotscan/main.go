// Package main is the entry point for the lotscan CLI.
//
// All functionality lives in internal/cli. Build-time variables are
// injected via ldflags; during development they default to "dev", "none"
// and "unknown".
package main

import (
	"github.com/mmr-tortoise/lotscan/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
