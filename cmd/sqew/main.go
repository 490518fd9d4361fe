// Command sqew runs the Sqew message-queue server and exposes a CLI
// mirroring its HTTP surface.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "sqew",
		Short:   "Sqew: a single-node embeddable message-queue service",
		Version: version,
	}

	root.AddCommand(
		newServeCommand(),
		newQueueCommand(),
		newMessageCommand(),
		newStatsCommand(),
		newHealthCommand(),
		newMetricsCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
