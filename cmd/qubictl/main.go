// qubictl is the command line client for the QubicBall tracker.
package main

import (
	"os"

	"github.com/felixnatanaelbutarbutar/qubicball/cmd/qubictl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
