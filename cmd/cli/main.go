// Command cli parses, reports on and ingests marketplace settlement exports.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
