package app

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	notify "github.com/olandr/splitnotify"
)

var (
	configPath string
	debug      bool

	// RootCmd is the root command for splitwatch
	RootCmd = &cobra.Command{
		Use:   "splitwatch",
		Short: "Watch directory trees and print every change",
		Long: `splitwatch watches a directory tree and prints the paths that changed below it.

With the split watcher enabled the root directory is watched on its own and
every directory directly below it gets a recursive watcher of its own.

Examples:
  # Watch a tree with the best watcher available
  splitwatch watch ~/src

  # Watch a tree with the split watcher
  splitwatch watch --split ~/src

  # Use a configuration file
  splitwatch watch --config splitwatch.yaml ~/src`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				notify.Logger().SetLevel(logrus.DebugLevel)
			}
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(commandsCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig returns the configuration named by --config, or the default one.
func loadConfig() (notify.Config, error) {
	if configPath == "" {
		return notify.DefaultConfig(), nil
	}
	cfg, err := notify.LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	return cfg, nil
}
