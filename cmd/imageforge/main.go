package main

import (
	"os"

	"github.com/imageforge/imageforge/cmd/imageforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
