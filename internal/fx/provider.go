package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"nakit/internal/core"
)

// DefaultRatesURL is the public frankfurter.app endpoint the dashboard has
// always pulled its quotes from.
const DefaultRatesURL = "https://api.frankfurter.app"

// Provider fetches live local-currency quotes for the supported foreign
// currencies and caches them for a day. A fetch failure falls back to the
// configured manual rates so the dashboard keeps working offline.
type Provider struct {
	baseURL  string
	client   *http.Client
	cache    *gocache.Cache
	fallback Rates
}

type frankfurterResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func NewProvider(baseURL string, fallback Rates) *Provider {
	if baseURL == "" {
		baseURL = DefaultRatesURL
	}
	return &Provider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    gocache.New(24*time.Hour, 48*time.Hour),
		fallback: fallback,
	}
}

// Current returns a rate table covering every supported foreign currency.
// Each quote comes from cache, then the API, then the configured fallback,
// in that order. Currencies with no quote at all are simply absent; the
// projector will report the missing rate if the view currency needs it.
func (p *Provider) Current(ctx context.Context) Rates {
	rates := Rates{}
	for _, c := range core.SupportedCurrencies {
		if c == core.LocalCurrency {
			continue
		}
		rate, err := p.rateFor(ctx, c)
		if err != nil {
			slog.WarnContext(ctx, "Rate lookup failed", "currency", c, "error", err)
			continue
		}
		rates[c] = rate
	}
	return rates
}

// Refresh drops the cache and re-fetches every quote. Used by the worker's
// daily schedule.
func (p *Provider) Refresh(ctx context.Context) Rates {
	p.cache.Flush()
	return p.Current(ctx)
}

func (p *Provider) rateFor(ctx context.Context, c core.Currency) (decimal.Decimal, error) {
	key := "rate-" + string(c)
	if cached, found := p.cache.Get(key); found {
		return cached.(decimal.Decimal), nil
	}

	rate, err := p.fetch(ctx, c)
	if err != nil {
		if fallback, ok := p.fallback[c]; ok && fallback.IsPositive() {
			slog.WarnContext(ctx, "Using fallback exchange rate", "currency", c, "rate", fallback, "error", err)
			return fallback, nil
		}
		return decimal.Zero, err
	}

	p.cache.Set(key, rate, gocache.DefaultExpiration)
	slog.InfoContext(ctx, "Fetched exchange rate", "currency", c, "rate", rate)
	return rate, nil
}

func (p *Provider) fetch(ctx context.Context, c core.Currency) (decimal.Decimal, error) {
	// The lira trades as TRY upstream even though the dashboard labels it TL.
	url := fmt.Sprintf("%s/latest?from=%s&to=TRY", p.baseURL, c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate for %s: %w", c, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate API returned %s for %s", resp.Status, c)
	}

	var body frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response for %s: %w", c, err)
	}

	raw, ok := body.Rates["TRY"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: TRY quote missing in response for %s", ErrMissingRate, c)
	}
	rate := decimal.NewFromFloat(raw)
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s = %s", ErrInvalidRate, c, rate)
	}
	return rate, nil
}
