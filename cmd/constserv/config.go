package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"constserv/config"
	"constserv/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New("warn", "console")
		if err != nil {
			return err
		}
		settings, origin := config.LoadOrDefault(configPath, log)
		_ = log.Sync()

		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# origin: %s\n%s", origin, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
