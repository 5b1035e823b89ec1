package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"offerlens/internal/api"
	"offerlens/internal/config"
	"offerlens/internal/issues"
	"offerlens/internal/publish"
	"offerlens/internal/summary"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard, recommendations and run summaries over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := cfgManager.Get()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		summaries := summary.NewStore(cfg.Summary.StoreLimit)
		issueStore := issues.NewStore(cfg.Issues.StoreLimit)

		if attribute, _ := cmd.Flags().GetBool("attribute"); attribute {
			publisher := publish.NewPublisher(cfg.Publish.Kafka, logger)
			p := &pipeline{cfg: cfg, logger: logger, store: st, summaries: summaries, issues: issueStore, publisher: publisher}
			_, err := p.run(ctx)
			publisher.Close() //nolint:errcheck
			if err != nil {
				return err
			}
		}

		server := api.NewServer(cfgManager, st, summaries, issueStore, logger, version)
		if _, err := server.Reload(ctx); err != nil {
			return err
		}
		if api.Start(ctx, server) == nil {
			return nil
		}

		interval, _ := cmd.Flags().GetDuration("watch")
		go cfgManager.Watch(interval, func(*config.Config) {
			logger.Info("config reloaded", "path", cfgManager.Path())
			if _, err := server.Reload(ctx); err != nil {
				logger.Error("snapshot reload failed", "err", err)
			}
		}, func(err error) {
			logger.Warn("config watch error", "err", err)
		}, ctx.Done())

		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("attribute", false, "run attribution before serving")
	serveCmd.Flags().Duration("watch", 3*time.Second, "config reload poll interval")
	rootCmd.AddCommand(serveCmd)
}
