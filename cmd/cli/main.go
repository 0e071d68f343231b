package main

import (
	"os"

	"github.com/nidhal-dev/authfront/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
