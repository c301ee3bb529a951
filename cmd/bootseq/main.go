// Package main provides the bootseq CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/bootseq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
