// Package main provides the entry point for the yakgwan CLI.
package main

import (
	"os"

	"github.com/yakgwan-ai/yakgwan/cmd/yakgwan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
