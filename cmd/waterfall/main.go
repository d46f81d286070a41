package main

import (
	"os"

	"github.com/rustyeddy/waterfall/cmd/waterfall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
