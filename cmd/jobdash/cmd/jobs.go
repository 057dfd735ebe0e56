package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/G-Research/jobdash/internal/common/app"
	"github.com/G-Research/jobdash/internal/jobdash/view"
	"github.com/G-Research/jobdash/internal/jobdashctl"
)

func createCmd(a *jobdashctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job from a YAML or JSON definition file.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("error reading file: %s", err)
			}
			ctx, stop := app.CreateContextWithShutdown(cmd.Context())
			defer stop()
			return a.CreateJob(ctx, path)
		},
	}
	cmd.Flags().StringP("file", "f", "", "Job definition file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCmd(a *jobdashctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <jobSpecId>",
		Short: "Create a run of a job.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := app.CreateContextWithShutdown(cmd.Context())
			defer stop()
			return a.RunJob(ctx, args[0])
		},
	}
	return cmd
}

func watchCmd(a *jobdashctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <jobSpecId>",
		Short: "Show the definition page of a job in the terminal.",
		Long: `This command prints the definition page of a job every time it changes, until the definition ` +
			`has been fetched or the timeout passes.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := cmd.Flags().GetDuration("timeout")
			if err != nil {
				return fmt.Errorf("error reading timeout: %s", err)
			}
			formatFlag, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error reading format: %s", err)
			}
			var format view.DisplayFormat
			if err := format.UnmarshalText([]byte(formatFlag)); err != nil {
				return err
			}

			ctx, stop := app.CreateContextWithShutdown(cmd.Context())
			defer stop()
			return a.Watch(ctx, args[0], format, timeout)
		},
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the definition")
	cmd.Flags().String("format", string(view.JsonFormat), "Definition format: json, yaml or go")
	return cmd
}
