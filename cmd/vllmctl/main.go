package main

import (
	"os"

	"github.com/strixlabs/vllmctl/cmd/vllmctl/app"
)

func main() {
	cmd := app.NewVllmctlCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
