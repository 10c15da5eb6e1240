package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rharish101/dilbert-viewer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
