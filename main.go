package main

import (
	"os"

	"github.com/imishinist/fe-bench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
