// Package main is the entry point for the serpforge CLI.
package main

import (
	"os"

	"github.com/serpforge/serpforge/cmd/serpforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
