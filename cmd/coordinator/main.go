package main

import (
	"fmt"
	"os"

	"github.com/brollup/coordinator/internal/coordinatorcli"
)

func main() {
	app := coordinatorcli.CLI()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
