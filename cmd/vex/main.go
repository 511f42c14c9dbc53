package main

import (
	"os"

	"github.com/quantroll/vex/cmd/vex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
