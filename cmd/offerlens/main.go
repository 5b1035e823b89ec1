package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"offerlens/internal/config"
	"offerlens/internal/logging"
)

const version = "0.3.0"

var (
	configPath string
	cfgManager *config.Manager
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "offerlens",
	Short: "Offer attribution over customer event logs",
	Long:  "Attributes offer completions and transactions per customer, persists the enriched table and serves recommendations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		m, err := config.NewManager(config.ResolvePath(configPath))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfgManager = m
		cfg := m.Get()
		logger = logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("OFFERLENS_CONFIG"), "path to a YAML or JSON config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
