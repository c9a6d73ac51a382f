package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas/internal/app"
	"canvas/internal/config"
	mcpserver "canvas/internal/mcp"
	"canvas/internal/metrics"
	"canvas/internal/optimistic"
	"canvas/internal/remote"
	"canvas/internal/service"
)

func newMCPCmd(opts *globalOptions) *cobra.Command {
	var remoteURL, metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the canvas to AI agents over MCP (stdio)",
		Long:  `Load the canvas from a shape store and serve MCP tools on stdin/stdout. Gestures are applied optimistically and synced in the background. With --config the sync retry policy follows edits to the file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if remoteURL != "" {
				cfg.Remote.BaseURL = remoteURL
			}
			ctx := cmd.Context()

			collector := metrics.NewCollector("canvas")
			client := remote.New(cfg.RemoteClient(), logger)
			engine := optimistic.New(optimistic.Deps{
				Remote:   client,
				Logger:   logger,
				Emitter:  service.LogEmitter{Logger: logger},
				Recorder: collector,
				Policy:   cfg.Policy(),
			})

			canvas := app.New(app.Deps{
				Engine:          engine,
				Paths:           client,
				Emitter:         service.LogEmitter{Logger: logger},
				Logger:          logger,
				RefreshInterval: cfg.Sync.RefreshInterval,
			})
			if err := canvas.Start(ctx); err != nil {
				engine.Close()
				return err
			}
			defer canvas.Close()

			if opts.configPath != "" {
				w, err := config.Watch(opts.configPath, cfg, logger)
				if err != nil {
					logger.Warn("config hot reload disabled", zap.Error(err))
				} else {
					defer w.Close()
					w.OnChange(func(c *config.Config) { engine.SetPolicy(c.Policy()) })
				}
			}

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, collector, logger)
				defer stop()
			}

			return mcpserver.New(mcpserver.Deps{App: canvas, Logger: logger, Version: version}).ServeStdio(ctx)
		},
	}

	cmd.Flags().StringVar(&remoteURL, "remote", "", "shape store base URL (overrides remote.base_url)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// serveMetrics exposes the collector on addr until the returned func runs.
func serveMetrics(addr string, collector *metrics.Collector, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}
}
