package main

import (
	"fmt"
	"os"

	"github.com/nsxbet/geoqc/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil && !cmd.IsOffense(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cmd.ExitCode(err))
}
