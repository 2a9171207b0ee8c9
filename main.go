// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Gobro.
//
// Usage:
//
//	go run . [flags]
//	./gobro [flags]
//
// This launches the Gobro CLI. See --help for options.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bnrobert/gobro/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the Gobro CLI.
func main() {
	// Print version info if requested (optional, placeholder for future flag parsing)
	if os.Getenv("GOBRO_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "Gobro version: %s\n", version)
	}

	if err := cli.Execute(); err != nil {
		log.Printf("Gobro CLI error: %v", err)
		os.Exit(1)
	}
}
