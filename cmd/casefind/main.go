// Package main provides the entry point for the casefind CLI.
package main

import (
	"os"

	"github.com/nyayatech/casefind/cmd/casefind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
