package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/apptbot/core/buildinfo"
	corecmd "github.com/m3rciful/apptbot/core/cmd"
)

func newRootCmd() *cobra.Command {
	var opts corecmd.Options
	opts.ConfigEnvVar = "CONFIG_PATH"
	opts.DefaultConfigPath = "config.yaml"

	cmd := &cobra.Command{
		Use:           "apptbot",
		Short:         "Appointment wizard for Stream Chat custom commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config (defaults to $CONFIG_PATH, then ./config.yaml)")

	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newSetupCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))
	cmd.AddCommand(newListCmd(&opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd(opts *corecmd.Options) *cobra.Command {
	var withSetup bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the custom command webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Serve(cmd.Context(), *opts, withSetup)
		},
	}
	cmd.Flags().BoolVar(&withSetup, "setup", false, "register commands with Stream before serving")
	return cmd
}

func newSetupCmd(opts *corecmd.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Register the custom commands and webhook URL with Stream",
		Long: `Creates the appointment command if missing, enables it on the configured
channel type and sets the app's custom_action_handler_url to stream.action_url.

Safe to run multiple times (idempotent).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Setup(cmd.Context(), *opts)
		},
	}
}

func newMigrateCmd(opts *corecmd.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Migrate(cmd.Context(), *opts)
		},
	}
}

func newListCmd(opts *corecmd.Options) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored appointments for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.List(cmd.Context(), *opts, userID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Stream user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apptbot %s\n", buildinfo.String())
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	os.Exit(execute(newRootCmd()))
}
