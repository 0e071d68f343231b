package commands

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/cli/projectconfig"
	"github.com/nidhal-dev/authfront/internal/storage"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Create authfront.yaml for this project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.storage, "storage", "", "Storage backend (keyring, file, sqlite, redis, memory)")
	cmd.Flags().StringVar(&opts.stateDir, "state-dir", "", "Directory for the file and sqlite backends")

	return cmd
}

type initOptions struct {
	storage  string
	stateDir string
}

func runInit(out io.Writer, apiURL string, opts *initOptions) error {
	u, err := url.Parse(apiURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q (want http(s)://host[:port])", apiURL)
	}

	switch opts.storage {
	case "", storage.BackendKeyring, storage.BackendFile, storage.BackendSQLite, storage.BackendRedis, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", opts.storage)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, projectconfig.ConfigFileName)

	cfg := &projectconfig.Config{}
	isNewConfig := true
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = projectconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", projectconfig.ConfigFileName)
		isNewConfig = false
	}

	cfg.APIURL = apiURL
	if opts.storage != "" {
		cfg.Storage = opts.storage
	}
	if opts.stateDir != "" {
		cfg.StateDir = opts.stateDir
	}

	if err := projectconfig.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s for %s\n", projectconfig.ConfigFileName, apiURL)
	} else {
		fmt.Fprintf(out, "✓ Updated ./%s for %s\n", projectconfig.ConfigFileName, apiURL)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'authfront signup' to create an account, or")
	fmt.Fprintln(out, "  2. Run 'authfront login' to authenticate")

	return nil
}
