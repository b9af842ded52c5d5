package main

import (
	"os"

	"github.com/esm-dev/dnt/cli"
)

func main() {
	os.Exit(cli.Run())
}
