package main

import (
	"os"

	"github.com/darless/c-deadlock-detector/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
