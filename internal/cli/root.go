package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/cli/commands"
	"github.com/nidhal-dev/authfront/internal/cli/projectconfig"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/logger"
	"github.com/nidhal-dev/authfront/internal/storage"
)

var version = "dev" // Will be set during build

var ephemeral bool

// loadConfig reads the environment, then overlays the nearest authfront.yaml
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	project, err := projectconfig.LoadFromCurrentDir()
	if err != nil {
		return nil, err
	}
	project.Apply(cfg)

	if ephemeral {
		cfg.Storage.Backend = storage.BackendMemory
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logger.GetLogger())
}

var rootCmd = &cobra.Command{
	Use:   "authfront",
	Short: "authfront - client for the auth API",
	Long: `authfront CLI - Log in, keep your session fresh and reach the pages
your role allows.

Access tokens are refreshed transparently; when the refresh token itself is
rejected the session ends and you are asked to log in again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		logger.Init(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep tokens and session in memory for this run only")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests and token refreshes")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "authfront version %s\n", version)
		},
	})

	env := commands.DefaultEnv(openApp)

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewStatusCmd(env))
	rootCmd.AddCommand(commands.NewOpenCmd(env))
	rootCmd.AddCommand(commands.NewRequestCmd(env))
	rootCmd.AddCommand(commands.NewSignupCmd(env))
	rootCmd.AddCommand(commands.NewActivateCmd(env))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(env))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(env))
	rootCmd.AddCommand(commands.NewAdminCmd(env))
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
