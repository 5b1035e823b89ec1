package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"offerlens/internal/issues"
	"offerlens/internal/publish"
	"offerlens/internal/summary"
)

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Run offer attribution over the configured inputs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := cfgManager.Get()
		if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
			next := *cfg
			next.Attribution.Workers = v
			cfg = &next
		}
		if v, _ := cmd.Flags().GetString("transcript"); v != "" {
			next := *cfg
			next.Input.TranscriptPath = v
			cfg = &next
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		publisher := publish.NewPublisher(cfg.Publish.Kafka, logger)
		defer publisher.Close() //nolint:errcheck

		p := &pipeline{
			cfg:       cfg,
			logger:    logger,
			store:     st,
			summaries: summary.NewStore(cfg.Summary.StoreLimit),
			issues:    issues.NewStore(cfg.Issues.StoreLimit),
			publisher: publisher,
		}
		report, err := p.run(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	attributeCmd.Flags().Int("workers", 0, "worker pool size (default from config)")
	attributeCmd.Flags().String("transcript", "", "transcript path (default from config)")
	rootCmd.AddCommand(attributeCmd)
}
