// Package main is the entry point for the traylib CLI.
package main

import (
	"os"

	"traylib/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
