// Package main is the entry point for the pricedesk CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/pricedesk/cmd/pricedeskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
