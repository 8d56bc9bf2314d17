// Package main provides the entry point for the sheetdb CLI.
package main

import (
	"os"

	"github.com/ideamans/go-sheetdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
