package main

import (
	"os"

	"github.com/sitetrace/sitetrace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
