// Command tbd is a personal task log with randomly activated pooled tasks.
package main

import (
	"os"

	"github.com/Strob0t/tbd/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
