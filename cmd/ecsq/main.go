package main

import (
	"os"

	"github.com/msto63/ecsq/cmd/ecsq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
