package projection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"nakit/internal/core"
	"nakit/internal/fx"
)

// CheckDescriptionPrefix marks check-backed entries in period details so they
// stay distinguishable from ordinary income lines.
const CheckDescriptionPrefix = "ÇEK: "

// Input carries everything a projection run needs. Today anchors the
// timeline; the projector never reads the wall clock itself.
type Input struct {
	Granularity  core.Granularity
	Today        time.Time
	ViewCurrency core.Currency
	Rates        fx.Rates
	Assets       []core.Asset
	Checks       []core.Check
	Transactions []core.Transaction
	Rules        []core.RecurringRule
}

// Project builds the full cash-flow timeline for the input: the baseline from
// included assets, plus checks, manual and imported transactions, and expanded
// recurring rules, bucketed into the granularity's periods with a running
// balance in the view currency.
//
// A missing rate for the view currency fails the whole run. Any single record
// that cannot be converted or parsed is skipped with a warning instead; one
// bad row never blanks the dashboard.
func Project(in Input, logger *slog.Logger) ([]FlowPeriod, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := in.ViewCurrency.Validate(); err != nil {
		return nil, err
	}
	if err := in.Rates.Validate(in.ViewCurrency); err != nil {
		return nil, fmt.Errorf("view currency %s: %w", in.ViewCurrency, err)
	}

	periods, err := BuildPeriods(in.Granularity, in.Today)
	if err != nil {
		return nil, err
	}

	today := core.Midnight(in.Today)
	todayKey := core.YMD(today)
	windowEnd, err := core.ParseYMD(periods[len(periods)-1].End)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	for _, a := range in.Assets {
		if !a.Included {
			continue
		}
		v, err := fx.Convert(a.Amount, a.Currency, in.ViewCurrency, in.Rates)
		if err != nil {
			logger.Warn("skipping asset", "id", a.ID, "name", a.Name, "error", err)
			continue
		}
		balance = balance.Add(v)
	}

	pool := make([]core.Transaction, 0, len(in.Transactions)+len(in.Checks))
	for _, t := range in.Transactions {
		if err := t.Validate(); err != nil {
			logger.Warn("skipping transaction", "id", t.ID, "error", err)
			continue
		}
		if t.Date < todayKey {
			continue
		}
		pool = append(pool, t)
	}

	// Checks join the pool as local-currency income on their effective date.
	for _, c := range in.Checks {
		if _, err := core.ParseYMD(c.EffectiveDate); err != nil {
			logger.Warn("skipping check", "id", c.ID, "error", core.ErrInvalidDate)
			continue
		}
		if c.EffectiveDate < todayKey {
			continue
		}
		pool = append(pool, core.Transaction{
			ID:          c.ID,
			Direction:   core.Income,
			Date:        c.EffectiveDate,
			Amount:      c.Amount,
			Currency:    core.LocalCurrency,
			Description: CheckDescriptionPrefix + c.Description,
		})
	}

	for _, r := range in.Rules {
		if err := r.Validate(); err != nil {
			logger.Warn("skipping recurring rule", "id", r.ID, "error", err)
			continue
		}
		occ, err := ExpandRule(r, today, windowEnd)
		if err != nil {
			logger.Warn("skipping recurring rule", "id", r.ID, "error", err)
			continue
		}
		pool = append(pool, occ...)
	}

	for i := range periods {
		p := &periods[i]
		for _, t := range pool {
			if t.Date < p.Start || t.Date > p.End {
				continue
			}
			v, err := fx.Convert(t.Amount, t.Currency, in.ViewCurrency, in.Rates)
			if err != nil {
				logger.Warn("skipping unconvertible entry", "id", t.ID, "currency", t.Currency, "error", err)
				continue
			}
			if t.Direction == core.Income {
				p.Incomes = p.Incomes.Add(v)
				p.Details[t.Description] = p.Details[t.Description].Add(v)
			} else {
				p.Expenses = p.Expenses.Add(v)
				p.Details[t.Description] = p.Details[t.Description].Sub(v)
			}
		}
		balance = balance.Add(p.Incomes).Sub(p.Expenses)
		p.Balance = balance
	}

	return periods, nil
}
