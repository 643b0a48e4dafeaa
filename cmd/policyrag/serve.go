package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"policyrag/internal/server"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			addr := a.Config.Server.Addr
			if serveAddr != "" {
				addr = serveAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// The server starts even when the index cannot be prepared; /api/ask
			// reports not ready until a reindex succeeds.
			if err := a.Manager.Ensure(ctx); err != nil {
				a.Logger.Warn().Err(err).Msg("Index not ready at startup")
			}

			srv := server.New(a.Config.Server.AllowOrigins, a.Query, a.Manager, a.Logger, a.Metrics)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.Logger.Info().Msg("Shutting down HTTP server")
			return srv.Shutdown(shutdownCtx)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	return serve
}
