// Package main is the entry point for the conductor-mcp server.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errInvocationFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}
