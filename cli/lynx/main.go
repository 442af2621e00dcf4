// Package main is the lynx command.
package main

import (
	"log"
	"os"

	"github.com/lynxrobotics/lynx/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
