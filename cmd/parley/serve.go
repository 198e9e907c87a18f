package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/parley-go-sdk/memory"
	chromemarchive "github.com/becomeliminal/parley-go-sdk/memory/archive/chromem"
	"github.com/becomeliminal/parley-go-sdk/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve conversations over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			embedder, err := cfg.newEmbedder()
			if err != nil {
				return err
			}
			catalog, err := cfg.newCatalog(logger, embedder)
			if err != nil {
				return err
			}

			srv := server.New(embedder, catalog, newLedger(),
				server.WithMemoryConfig(cfg.memoryConfig()),
				server.WithArchiveFactory(func(conversation string) (memory.Archive, error) {
					return chromemarchive.New(conversation)
				}),
				server.WithLogger(logger))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Addr)
		},
	}
}
