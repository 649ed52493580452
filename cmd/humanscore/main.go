package main

import (
	"os"

	"github.com/zombar/humanscore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
