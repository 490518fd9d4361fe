package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqewdb/sqew/internal/config"
)

// newMetricsCommand mirrors GET /metrics: it fetches from a running sqew
// serve process rather than opening the database itself, since metrics
// are in-process counters, not persisted state.
func newMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Fetch Prometheus metrics from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			resp, err := http.Get("http://" + cfg.Bind + "/metrics")
			if err != nil {
				exitWithErr(fmt.Errorf("fetch metrics: %w", err), false)
				return nil
			}
			defer resp.Body.Close()
			_, err = io.Copy(os.Stdout, resp.Body)
			if err != nil {
				exitWithErr(err, false)
			}
			return nil
		},
	}
}
