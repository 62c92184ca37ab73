// keyspot spots keywords in text with an Aho-Corasick automaton.
// One-shot scans from the command line, or a daemon serving a Unix socket and HTTP.
package main

import (
	"os"

	"github.com/corey/keyspot/cmd/keyspot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
