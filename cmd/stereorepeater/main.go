// Package main runs the stereo camera repeater.
package main

import (
	"fmt"
	"os"

	"go.viam.com/stereorepeater/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
