package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/iterenrich/internal/api"
	"github.com/matzehuels/iterenrich/pkg/cache"
	"github.com/matzehuels/iterenrich/pkg/config"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
)

const (
	// shutdownTimeout bounds how long in-flight requests may finish after
	// the server is asked to stop.
	shutdownTimeout = 30 * time.Second

	// apiKeyPrefix separates API cache entries from CLI entries in a shared
	// backend.
	apiKeyPrefix = "api:"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the enrichment HTTP API",
		Long: `Serve the enrichment HTTP API.

Endpoints:
  GET  /health
  POST /v1/enrichment   single-pass enrichment
  POST /v1/iterative    iterative enrichment
  POST /v1/network      DOT network from iterative runs

Engine and iterative flags set the defaults that requests may override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	d := config.Default()
	cmd.Flags().String("addr", d.Server.Addr, "listen address")
	addEngineFlags(cmd.Flags())
	cmd.Flags().Float64("p-threshold", d.Iterative.PThreshold, "default iterative p-value threshold")
	cmd.Flags().Int("max-iterations", d.Iterative.MaxIterations, "default maximum number of rounds (0 = unlimited)")
	cmd.Flags().Int("min-overlap", d.Iterative.MinOverlap, "default minimum overlap for a removed term")

	return cmd
}

// runServe serves until ctx is canceled, then shuts down gracefully.
func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, cfg, cache.NewScopedKeyer(nil, apiKeyPrefix))
	if err != nil {
		return err
	}
	defer runner.Close()

	srv := api.NewServer(runner, api.Options{
		Defaults:     pipelineOptions(cfg, pipeline.ModeRegular, false),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()
	printSuccess("Listening on %s", StyleValue.Render("http://"+cfg.Server.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
