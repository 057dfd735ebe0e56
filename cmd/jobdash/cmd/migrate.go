package cmd

import (
	"github.com/spf13/cobra"

	"github.com/G-Research/jobdash/internal/common"
	"github.com/G-Research/jobdash/internal/common/app"
	"github.com/G-Research/jobdash/internal/jobdash"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the postgres database to the latest schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			common.ConfigureLogging()
			config, err := loadServerConfig(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := app.CreateContextWithShutdown(cmd.Context())
			defer stop()
			return jobdash.Migrate(ctx, config)
		},
	}
	addServerConfigFlag(cmd.Flags())
	return cmd
}
