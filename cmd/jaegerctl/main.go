// Command jaegerctl drives a focal plane system fleet: initialising the
// positioner population, issuing moves and trajectories, and reporting
// fleet status, over an in-memory simulated CAN bus and fleet.
package main

import (
	"os"

	"github.com/albireox/jaeger-core/cmd/jaegerctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("jaegerctl: %v", err)
		os.Exit(1)
	}
}
