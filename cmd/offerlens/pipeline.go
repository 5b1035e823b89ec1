package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"offerlens/internal/config"
	"offerlens/internal/engine"
	"offerlens/internal/ingest"
	"offerlens/internal/issues"
	"offerlens/internal/merge"
	"offerlens/internal/model"
	"offerlens/internal/publish"
	"offerlens/internal/storage"
	"offerlens/internal/summary"
)

type runReport struct {
	Run             model.RunRecord `json:"run"`
	Dropped         int             `json:"duplicates_dropped"`
	Rows            int             `json:"rows"`
	Published       int             `json:"published"`
	Processed       int             `json:"processed"`
	FailedCustomers []string        `json:"failed_customers,omitempty"`
}

type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	summaries *summary.Store
	issues    *issues.Store
	publisher *publish.Publisher
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	st, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Init(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// run loads the inputs, attributes every customer and hands the enriched
// table to storage and the kafka sink. A cancelled or aborted engine run
// persists nothing.
func (p *pipeline) run(ctx context.Context) (*runReport, error) {
	started := time.Now().UTC()
	in := p.cfg.Input

	profiles, err := ingest.LoadProfiles(ctx, in.ProfilePath, p.logger)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	offers, err := ingest.LoadPortfolio(ctx, in.PortfolioPath)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	events, err := ingest.LoadTranscript(ctx, in.TranscriptPath)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	report := &runReport{}
	if in.Dedupe {
		events, report.Dropped = ingest.DropDuplicates(events)
		if report.Dropped > 0 {
			p.logger.Info("duplicate events dropped", "count", report.Dropped)
		}
	}

	opts := engine.OptionsFromConfig(p.cfg)
	if p.cfg.Attribution.RequireKnownCustomers {
		opts.KnownCustomers = merge.KnownCustomers(profiles)
	}
	res, err := engine.NewEngine(opts, p.logger, p.summaries, p.issues).Run(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("attribution: %w", err)
	}

	rows := merge.Join(res.Events, profiles, offers)
	report.Rows = len(rows)
	report.Processed = res.Processed
	for _, ce := range res.Errors {
		report.FailedCustomers = append(report.FailedCustomers, ce.CustomerID)
	}
	report.Run = model.RunRecord{
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Events:     len(events),
		Customers:  res.Customers,
		Failed:     res.Failed,
	}

	if p.store != nil {
		if err := p.store.ReplaceRows(ctx, rows); err != nil {
			return nil, fmt.Errorf("persist rows: %w", err)
		}
		if report.Run, err = p.store.SaveRun(ctx, report.Run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}
	if p.publisher != nil {
		if report.Published, err = p.publisher.Publish(ctx, rows); err != nil {
			return report, fmt.Errorf("publish rows: %w", err)
		}
	}
	p.logger.Info("attribution run stored",
		"run_id", report.Run.ID,
		"rows", report.Rows,
		"failed", res.Failed,
	)
	return report, nil
}
