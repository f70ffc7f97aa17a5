package main

import (
	"os"

	"github.com/autopeer-io/assistcart/cmd/cartctl/app"
)

func main() {
	if err := app.NewCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
