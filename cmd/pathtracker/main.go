// Package main is the pathtracker command.
package main

import (
	"os"

	"go.viam.com/pathtracker/cli"
	"go.viam.com/pathtracker/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Error(err)
		//nolint:errcheck
		logging.Global().Sync()
		os.Exit(1)
	}
}
