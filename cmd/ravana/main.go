// Command ravana is the entry point for the ravana document indexing and
// retrieval engine. It provides a CLI interface (via Cobra) and an optional
// HTTP server exposing the index over a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/BenDundee/ravana/cmd/ravana/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
