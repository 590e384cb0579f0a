package main

import (
	"log"
	"os"

	"github.com/dtnitsch/freqmerge/internal/commands"
)

func main() {
	if err := commands.App().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
