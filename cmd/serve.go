package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog admin API",
		Long: `Starts the catalog admin API on the specified port.

The API serves the cached catalog document, accepts entity edits and media
uploads, and falls back to the local mirror while the remote store is unreachable.`,
		Example: `  # Start server on the configured port (default 8888)
  catalogsync serve

  # Start server on custom port against a staging store
  CATALOGSYNC_API_URL=https://staging.example.com catalogsync serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = a.cfg.Port
			}

			// Warm the cache so the first request is served from memory
			if _, err := a.cache.Read(cmd.Context()); err != nil {
				slog.Warn("Catalog not available yet", "err", err)
			}

			mux := http.NewServeMux()
			handlers.New(a.cache, a.service, a.uploads).Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Catalog admin API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to CATALOGSYNC_PORT or 8888)")

	return cmd
}
