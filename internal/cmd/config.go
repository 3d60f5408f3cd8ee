package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skyfold/skyls/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage skyls configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault()
		if err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write config", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg == nil {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return exitError(foundry.ExitFileReadError, "Failed to load configuration", err)
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to render configuration", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
