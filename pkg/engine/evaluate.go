package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nsxbet/geoqc/pkg/metrics"
	"github.com/nsxbet/geoqc/pkg/types"
)

// Options tune an evaluation run.
type Options struct {
	// Concurrency bounds the number of items evaluated at once. Values
	// below 1 mean sequential evaluation.
	Concurrency int
	// OnOutcome receives each outcome as soon as it is produced. It may be
	// called from several goroutines.
	OnOutcome func(*types.Outcome)
	Metrics   *metrics.Metrics
}

// Evaluate applies rules to every item. RuleAll is expanded per item domain
// and rules of another domain are skipped. Rule failures become error
// outcomes; only context cancellation aborts the run, in which case no
// outcomes are returned.
//
// The result is ordered by item, then by canonical rule order, whatever the
// concurrency.
func Evaluate(ctx context.Context, items []types.Item, rules []types.Rule, base Context, opts Options) ([]*types.Outcome, error) {
	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
		base.Logger = logger
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([][]*types.Outcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for idx, item := range items {
		if gctx.Err() != nil {
			break
		}
		idx, item := idx, item
		g.Go(func() error {
			outcomes, err := evaluateItem(gctx, item, rules, base, opts)
			if err != nil {
				return err
			}
			results[idx] = outcomes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*types.Outcome
	for _, outcomes := range results {
		all = append(all, outcomes...)
	}
	return all, nil
}

func evaluateItem(ctx context.Context, item types.Item, rules []types.Rule, base Context, opts Options) ([]*types.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	checkCtx := base
	checkCtx.Item = item
	checkCtx.Logger = base.Logger.With("item", item.ID())
	if file, ok := item.(types.RasterFile); ok && base.OpenRaster != nil {
		open := sync.OnceValues(func() (RasterMeasurer, error) {
			return base.OpenRaster(file)
		})
		checkCtx.OpenRaster = func(types.RasterFile) (RasterMeasurer, error) { return open() }
	}

	expanded := types.Expand(rules, item.Domain())
	outcomes := make([]*types.Outcome, 0, len(expanded))
	for _, rule := range expanded {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		checkCtx.Tolerance = base.Tolerances[rule]

		start := time.Now()
		outcome, err := Check(ctx, item.Domain(), rule, checkCtx)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch {
		case err != nil:
			checkCtx.Logger.Warn("rule could not be evaluated", "rule", rule, "error", err)
			outcome = types.NewErrorOutcome(item, rule, err)
		case outcome == nil:
			outcome = types.NewOutcome(item, rule, types.VerdictError)
			outcome.Error = "rule returned no outcome"
		}
		opts.Metrics.ObserveOutcome(string(item.Domain()), string(rule), string(outcome.Verdict), time.Since(start))

		if opts.OnOutcome != nil {
			opts.OnOutcome(outcome)
		}
		outcomes = append(outcomes, outcome)
	}

	opts.Metrics.IncrementItems(string(item.Domain()))
	checkCtx.Logger.Info("item checked", "rules", len(outcomes), "offending", countOffending(outcomes))
	return outcomes, nil
}

func countOffending(outcomes []*types.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Offending() {
			n++
		}
	}
	return n
}
