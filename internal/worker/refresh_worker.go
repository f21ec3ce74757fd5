// Package worker keeps the background side of the dashboard running: it
// reacts to refresh messages by rebuilding the projection and storing a fresh
// AI analysis, and refreshes exchange rates on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nakit/internal/amqp"
	"nakit/internal/core"
	"nakit/internal/fx"
	"nakit/internal/projection"
	"nakit/internal/storage"
)

// Repository is the slice of storage the worker needs.
type Repository interface {
	ListAssets(ctx context.Context) ([]core.Asset, error)
	ListChecks(ctx context.Context) ([]core.Check, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListRules(ctx context.Context) ([]core.RecurringRule, error)
	SaveAnalysisReport(ctx context.Context, report storage.AnalysisReport) error
}

// RateSource serves and refreshes the exchange rate table.
type RateSource interface {
	Current(ctx context.Context) fx.Rates
	Refresh(ctx context.Context) fx.Rates
}

// Analyst produces written commentary for a projection. Optional.
type Analyst interface {
	AnalyzeCashFlow(ctx context.Context, periods []projection.FlowPeriod) (string, error)
}

// RefreshWorker rebuilds the projection whenever the data changes.
type RefreshWorker struct {
	repo        Repository
	rates       RateSource
	analyst     Analyst
	granularity core.Granularity
	currency    core.Currency
}

func NewRefreshWorker(repo Repository, rates RateSource, analyst Analyst) *RefreshWorker {
	return &RefreshWorker{
		repo:        repo,
		rates:       rates,
		analyst:     analyst,
		granularity: core.WeeklyView,
		currency:    core.LocalCurrency,
	}
}

// HandleRefreshMessage processes one refresh request: recompute the timeline,
// log its shape, and store a fresh analysis when an analyst is configured.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message", "reason", msg.Reason)

	periods, err := w.buildProjection(ctx)
	if err != nil {
		return fmt.Errorf("build projection: %w", err)
	}

	summary := Summarize(periods)
	slog.InfoContext(ctx, "Projection rebuilt",
		"periods", len(periods),
		"final_balance", summary.FinalBalance,
		"lowest_balance", summary.LowestBalance,
		"lowest_period", summary.LowestLabel)

	if w.analyst == nil {
		return nil
	}

	text, err := w.analyst.AnalyzeCashFlow(ctx, periods)
	if err != nil {
		// The projection itself succeeded; a flaky model should not
		// requeue the message forever.
		slog.WarnContext(ctx, "Analysis generation failed", "error", err)
		return nil
	}

	report := storage.AnalysisReport{
		ViewCurrency: w.currency,
		Granularity:  string(w.granularity),
		Content:      text,
	}
	if err := w.repo.SaveAnalysisReport(ctx, report); err != nil {
		return fmt.Errorf("save analysis report: %w", err)
	}

	slog.InfoContext(ctx, "Stored fresh analysis", "length", len(text))
	return nil
}

// RefreshRates re-fetches quotes, typically from a cron schedule.
func (w *RefreshWorker) RefreshRates(ctx context.Context) {
	start := time.Now()
	rates := w.rates.Refresh(ctx)
	slog.InfoContext(ctx, "Exchange rates refreshed",
		"currencies", len(rates),
		"duration_ms", time.Since(start).Milliseconds())
}

func (w *RefreshWorker) buildProjection(ctx context.Context) ([]projection.FlowPeriod, error) {
	assets, err := w.repo.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	checks, err := w.repo.ListChecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	txs, err := w.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	rules, err := w.repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}

	return projection.Project(projection.Input{
		Granularity:  w.granularity,
		Today:        time.Now(),
		ViewCurrency: w.currency,
		Rates:        w.rates.Current(ctx),
		Assets:       assets,
		Checks:       checks,
		Transactions: txs,
		Rules:        rules,
	}, nil)
}

// Summary condenses a timeline to the numbers worth logging or alerting on.
type Summary struct {
	FinalBalance  string
	LowestBalance string
	LowestLabel   string
}

func Summarize(periods []projection.FlowPeriod) Summary {
	if len(periods) == 0 {
		return Summary{}
	}

	lowest := periods[0]
	for _, p := range periods[1:] {
		if p.Balance.LessThan(lowest.Balance) {
			lowest = p
		}
	}

	return Summary{
		FinalBalance:  periods[len(periods)-1].Balance.String(),
		LowestBalance: lowest.Balance.String(),
		LowestLabel:   lowest.Label,
	}
}
