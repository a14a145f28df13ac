package main

import (
	"os"

	"github.com/msto63/lendbot/cmd/lendbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
