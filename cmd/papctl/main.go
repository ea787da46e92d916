// Package main is the entry point for papctl, the operator CLI of the
// policy administration point.
package main

import (
	"os"

	"github.com/Deuthe/test-odrl-integration/cmd/papctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
