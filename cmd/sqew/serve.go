package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sqewdb/sqew/internal/api"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/reaper"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			expiryJob := reaper.NewExpiryJob(a.store, a.clock, a.metrics, cfg.ReapIntervalMs)
			defer expiryJob.Close()
			optimizeJob := reaper.NewOptimizeJob(a.store, cfg.DbOptimizeIntervalMs)
			defer optimizeJob.Close()
			depthJob := reaper.NewDepthJob(a.registry, a.metrics, cfg.ReapIntervalMs*10)
			defer depthJob.Close()

			return runServer(a, cfg)
		},
	}
}

func runServer(a *app, cfg *config.Config) error {
	srv := api.NewServer(a.registry, a.engine, cfg)

	httpServer := &http.Server{
		Addr:              cfg.Bind,
		Handler:           http.TimeoutHandler(srv.Router(cfg.APIKey), cfg.Timeouts.Read, "timeout"),
		WriteTimeout:      cfg.Timeouts.Write,
		ReadTimeout:       cfg.Timeouts.Read,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		IdleTimeout:       cfg.Timeouts.Idle,
	}

	log.Info().Str("bind", cfg.Bind).Msg("sqew server starting")
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
