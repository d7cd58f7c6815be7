// Command skycat maintains a sky imagery catalog as a store of records.
package main

import (
	"os"

	"github.com/aidanlsb/skycat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
