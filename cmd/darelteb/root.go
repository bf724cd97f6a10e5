package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/darelteb"
)

// cli holds the persistent flags shared by every command.
type cli struct {
	configDir string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "darelteb",
		Short: "Manage your favorite Dar El-Teb lab tests",
		Long: `darelteb keeps the lab tests you bookmarked in a local store that survives restarts.

Favorites are kept in insertion order and each test appears at most once.
The store and its location are configured in config.yaml inside the config directory.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.configDir, "config-dir", "", "configuration directory (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		newListCmd(c),
		newAddCmd(c),
		newRemoveCmd(c),
		newCheckCmd(c),
		newToggleCmd(c),
		newClearCmd(c),
		newCountCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newConfigCmd(c),
		newLogsCmd(c),
	)
	return rootCmd
}

// loadConfig reads the configuration from --config-dir or the default location.
func (c *cli) loadConfig() (*darelteb.Config, error) {
	dir := c.configDir
	if dir == "" {
		defaultDir, err := darelteb.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		dir = defaultDir
	}

	cfg, err := darelteb.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// open loads the configuration and opens the configured backend.
// Logs go to the command's stderr at the configured level, or debug with --verbose.
func (c *cli) open(cmd *cobra.Command) (*darelteb.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := darelteb.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	app, err := darelteb.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	logger.Debug("backend opened", "backend", cfg.Backend, "path", cfg.DataPath(), "key", cfg.FavoritesKey)
	return app, nil
}
