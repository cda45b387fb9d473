package main

import (
	"log"

	"github.com/kirov7/kuloydis/cmd/root"
	_ "github.com/kirov7/kuloydis/cmd/server"
)

func main() {
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
