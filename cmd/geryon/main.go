package main

import (
	"os"

	"github.com/sandialabs/geryon/cmd/geryon/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
