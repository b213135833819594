package main

import (
	"os"

	"github.com/fd-manager/fdm/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
