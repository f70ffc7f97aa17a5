package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/assistcart/cmd/cart-agent/app"
)

func main() {
	app.NewApp().Run()
}
