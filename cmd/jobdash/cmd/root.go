package cmd

import (
	"github.com/spf13/cobra"

	"github.com/G-Research/jobdash/internal/jobdashctl"
	"github.com/G-Research/jobdash/pkg/client"
)

const clientConfigFlag = "config"

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "jobdash",
		Short:        "jobdash serves and browses job definitions.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(clientConfigFlag, "", "config file (default is $HOME/.jobdash.yaml)")
	client.AddJobDashApiConnectionCommandlineArgs(cmd)

	cmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		createCmd(jobdashctl.New()),
		runCmd(jobdashctl.New()),
		watchCmd(jobdashctl.New()),
	)

	return cmd
}

// initApp loads the client config file and fills in how a client command reaches the API and where it writes.
func initApp(cmd *cobra.Command, a *jobdashctl.App) error {
	cfgFile, err := cmd.Flags().GetString(clientConfigFlag)
	if err != nil {
		return err
	}
	if err := client.LoadCommandlineArgsFromConfigFile(cfgFile); err != nil {
		return err
	}
	a.Params.ApiConnectionDetails = client.ExtractCommandlineJobDashApiConnectionDetails()
	a.Out = cmd.OutOrStdout()
	return nil
}
