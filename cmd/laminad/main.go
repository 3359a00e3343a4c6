// Command laminad administers a lamina storage engine instance.
package main

import (
	"fmt"
	"os"

	"github.com/laminastore/lamina/cmd/laminad/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
