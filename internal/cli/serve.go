package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas/internal/metrics"
	"canvas/internal/server"
	"canvas/internal/storage"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr, dsn string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP shape store",
		Long:  `Serve the /api/v0/shapes and /api/v0/multipage-paths endpoints from a SQLite, PostgreSQL or MySQL database, with Prometheus metrics on /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dsn != "" {
				cfg.Storage.DSN = dsn
			}

			db, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer db.Close()
			logger.Info("storage ready",
				zap.String("driver", db.Driver()),
				zap.String("environment", cfg.Environment))

			srv := server.New(server.Deps{
				DB:      db,
				Shapes:  storage.NewShapeStore(db),
				Paths:   storage.NewPathStore(db),
				Logger:  logger,
				Metrics: metrics.NewCollector("canvas"),
				Config:  cfg.Server,
			})
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (overrides storage.dsn)")
	return cmd
}
