// Package main is the entry point for the crowdctl CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/crowdwatch/cmd/crowdctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
