package main

import (
	"os"

	"github.com/sakif/country-explorer/cmd/atlas/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
