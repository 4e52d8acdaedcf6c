package main

import (
	"os"

	"github.com/darknessitachi/pquant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
