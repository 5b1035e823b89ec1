package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"offerlens/internal/config"
	"offerlens/internal/issues"
	"offerlens/internal/logging"
	"offerlens/internal/model"
	"offerlens/internal/summary"
)

type Options struct {
	Workers         int
	BoundaryPolicy  string
	MalformedPolicy string
	// KnownCustomers, when non-nil, is the registry every event's customer
	// must belong to.
	KnownCustomers map[string]struct{}
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:         cfg.Attribution.Workers,
		BoundaryPolicy:  cfg.Attribution.BoundaryPolicy,
		MalformedPolicy: cfg.Attribution.MalformedPolicy,
	}
}

type Engine struct {
	logger    *slog.Logger
	summaries *summary.Store
	issues    *issues.Store
	opts      Options
}

type Result struct {
	Events    []model.AttributedEvent
	Summaries []model.CustomerSummary
	Errors    []model.CustomerError
	Customers int
	Processed int
	Failed    int
	Duration  time.Duration
}

func NewEngine(opts Options, logger *slog.Logger, summaries *summary.Store, issueStore *issues.Store) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BoundaryPolicy == "" {
		opts.BoundaryPolicy = config.BoundaryNoMatch
	}
	if opts.MalformedPolicy == "" {
		opts.MalformedPolicy = config.MalformedIsolate
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{logger: logger, summaries: summaries, issues: issueStore, opts: opts}
}

// Run attributes every customer of the log. Customers are independent and
// processed by a bounded worker pool; each one's rows are written in a single
// step after its computation finished, so a cancelled run leaves unprocessed
// customers at their defaults. On cancellation or abort the partial result is
// returned together with the error.
func (e *Engine) Run(ctx context.Context, events []model.Event) (*Result, error) {
	started := time.Now()
	out := make([]model.AttributedEvent, len(events))
	for i, ev := range events {
		out[i] = model.AttributedEvent{Event: ev}
	}
	part := BuildTimelines(events, e.opts.KnownCustomers)

	summaries := make([]*model.CustomerSummary, part.Len())
	failures := make([]*model.CustomerError, part.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for pos, id := range part.Order {
		if gctx.Err() != nil {
			break
		}
		pos := pos
		tl := part.Timelines[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if tl.Err != nil {
				ce := toCustomerError(tl.CustomerID, tl.Err)
				failures[pos] = &ce
				if e.opts.MalformedPolicy == config.MalformedAbort {
					return tl.Err
				}
				return nil
			}
			res := attributeCustomer(tl, e.opts.BoundaryPolicy)
			res.commit(out)
			summaries[pos] = &res.summary
			return nil
		})
	}
	runErr := g.Wait()

	res := &Result{Events: out, Customers: part.Len()}
	for pos := range part.Order {
		if s := summaries[pos]; s != nil {
			res.Summaries = append(res.Summaries, *s)
		}
		if f := failures[pos]; f != nil {
			res.Errors = append(res.Errors, *f)
		}
	}
	res.Processed = len(res.Summaries)
	res.Failed = len(res.Errors)
	res.Duration = time.Since(started)
	if runErr == nil && ctx.Err() != nil && res.Processed+res.Failed < res.Customers {
		runErr = ctx.Err()
	}
	e.publish(res)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			e.logger.Warn("attribution cancelled",
				"processed", res.Processed,
				"customers", res.Customers,
			)
		}
		return res, runErr
	}
	e.logger.Info("attribution complete",
		"events", len(events),
		"customers", res.Customers,
		"processed", res.Processed,
		"failed", res.Failed,
		"workers", e.opts.Workers,
		"duration", res.Duration.String(),
	)
	return res, nil
}

// publish is the single-writer step after all workers finished.
func (e *Engine) publish(res *Result) {
	for _, ce := range res.Errors {
		e.logger.Warn("customer attribution failed",
			"customer_id", ce.CustomerID,
			"global_index", ce.GlobalIndex,
			"kind", ce.Kind,
			"err", ce.Message,
		)
	}
	if e.summaries != nil {
		e.summaries.Replace(res.Summaries)
	}
	if e.issues != nil {
		e.issues.Replace(res.Errors)
	}
}

type customerResult struct {
	offerRows []TimelineEntry
	offers    []model.Attribution
	txRows    []TimelineEntry
	txs       []model.Attribution
	summary   model.CustomerSummary
}

func attributeCustomer(tl *CustomerTimeline, boundary string) customerResult {
	res := customerResult{
		offerRows: tl.Offers,
		offers:    make([]model.Attribution, len(tl.Offers)),
		txRows:    tl.Transactions,
		txs:       make([]model.Attribution, len(tl.Transactions)),
		summary: model.CustomerSummary{
			CustomerID:   tl.CustomerID,
			Events:       len(tl.Offers) + len(tl.Transactions),
			Transactions: len(tl.Transactions),
		},
	}
	offerPos := make(map[int]int, len(tl.Offers))
	for i, entry := range tl.Offers {
		offerPos[entry.Event.GlobalIndex] = i
		if entry.Event.Kind == model.KindCompleted {
			res.summary.Completed++
		}
	}

	links := MatchCompletions(tl.Offers, boundary)
	txIndex := NewTransactionIndex(tl.Transactions)
	marker := NewInfluenceMarker(txIndex.Len())
	for _, link := range links {
		ci := offerPos[link.Completed.Event.GlobalIndex]
		agg := txIndex.Aggregate(link.Viewed.Event.GlobalIndex, link.Completed.Event.GlobalIndex)
		marker.Mark(agg)

		attr := &res.offers[ci]
		attr.CompletedAndViewed = true
		attr.CompletedTransactionReturn = agg.Return
		attr.CompletedTransactionQty = agg.Qty
		attr.NetReturn = NetReturn(agg, link.Completed.Event)
		if link.Received != nil {
			res.offers[offerPos[link.Received.Event.GlobalIndex]].ReceivedAndCompleted = true
		}

		res.summary.CompletedAndViewed++
		res.summary.TransactionReturn += agg.Return
		res.summary.RewardCost += link.Completed.Event.RewardValue()
		res.summary.NetReturn += attr.NetReturn
	}
	for i, n := range marker.Influenced() {
		if n > 0 {
			res.txs[i].InfluencedTransaction = true
			res.summary.InfluencedTransactions++
		}
	}
	for _, attr := range res.offers {
		if attr.ReceivedAndCompleted {
			res.summary.ReceivedAndCompleted++
		}
	}
	return res
}

func (r customerResult) commit(out []model.AttributedEvent) {
	for i, entry := range r.offerRows {
		out[entry.Row].Attribution = r.offers[i]
	}
	for i, entry := range r.txRows {
		out[entry.Row].Attribution = r.txs[i]
	}
}
