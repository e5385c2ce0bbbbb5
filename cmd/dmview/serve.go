package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmview/internal/app"
	"github.com/vovakirdan/dmview/internal/config"
)

func newServeCmd(st *state) *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local message store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st.cfg.UpdateFrom(config.Config{Addr: addr, DatabasePath: dbPath})

			application, err := app.New(&st.cfg, st.logger)
			if err != nil {
				return err
			}

			st.logger.Info().Str("addr", st.cfg.Addr).Msg("starting message store")
			if err := application.Run(cmd.Context()); err != nil {
				return err
			}
			st.logger.Info().Msg("message store stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
	return cmd
}
