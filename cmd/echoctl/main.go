// Package main provides the echoctl CLI tool for calling the echo server.
package main

import (
	"os"

	"github.com/sirosfoundation/go-echo-server/cmd/echoctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
