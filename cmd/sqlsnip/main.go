// Package main provides the CLI for sqlsnip, a composable SQL snippet tool.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlsnip/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
