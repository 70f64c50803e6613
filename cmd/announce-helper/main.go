package main

import (
	"os"

	"announce-helper/internal/adapter/primary/cli"
	"announce-helper/internal/logging"
)

func main() {
	code := cli.Execute(os.Args[1:], cli.DefaultDeps())
	logging.Sync()
	os.Exit(code)
}
