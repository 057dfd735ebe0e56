package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/G-Research/jobdash/internal/common"
	"github.com/G-Research/jobdash/internal/common/app"
	"github.com/G-Research/jobdash/internal/common/health"
	"github.com/G-Research/jobdash/internal/jobdash"
	"github.com/G-Research/jobdash/internal/jobdash/configuration"
)

const (
	serverConfigFlag  = "serverConfig"
	defaultConfigPath = "./config/jobdash"
)

func addServerConfigFlag(flags *pflag.FlagSet) {
	flags.StringSlice(
		serverConfigFlag,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)",
	)
}

func loadServerConfig(flags *pflag.FlagSet) (*configuration.JobDashConfiguration, error) {
	userConfigs, err := flags.GetStringSlice(serverConfigFlag)
	if err != nil {
		return nil, err
	}
	var config configuration.JobDashConfiguration
	common.LoadConfig(&config, defaultConfigPath, userConfigs)
	return &config, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job API and the job definition pages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			common.ConfigureLogging()
			config, err := loadServerConfig(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := app.CreateContextWithShutdown(cmd.Context())
			defer stop()
			return jobdash.Serve(ctx, config, health.NewMultiChecker())
		},
	}
	addServerConfigFlag(cmd.Flags())
	return cmd
}
