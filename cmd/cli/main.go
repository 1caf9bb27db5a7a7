// Package main is the entry point for the spt3g CLI binary.
package main

import (
	"os"

	cli "spt3g-viewer/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
