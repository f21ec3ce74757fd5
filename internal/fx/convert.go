// Package fx converts amounts between the currencies the dashboard supports.
// Every rate is quoted against the local currency: Rates[EUR] is how many
// lira one euro buys. Cross-currency conversion always pivots through the
// local currency so a TL/EUR and a TL/USD quote are enough for EUR→USD.
package fx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"nakit/internal/core"
)

var (
	// ErrMissingRate marks a conversion that has no quote for one of its
	// legs. Callers must treat this for the active view currency as fatal:
	// defaulting to 1:1 would corrupt every balance downstream.
	ErrMissingRate = errors.New("missing exchange rate")

	// ErrInvalidRate marks a zero or negative quote.
	ErrInvalidRate = errors.New("invalid exchange rate")
)

// Rates maps each supported foreign currency to its local-currency quote.
// The local currency itself needs no entry.
type Rates map[core.Currency]decimal.Decimal

// rateToLocal returns the quote for one unit of c in local currency.
func (r Rates) rateToLocal(c core.Currency) (decimal.Decimal, error) {
	if c == core.LocalCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := r[c]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, c)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s = %s", ErrInvalidRate, c, rate)
	}
	return rate, nil
}

// Convert expresses amount, held in from, as an amount of to. Identity when
// both sides match. Any missing or non-positive quote fails the conversion
// outright rather than leaking a bogus number into a running balance.
func Convert(amount decimal.Decimal, from, to core.Currency, rates Rates) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	srcRate, err := rates.rateToLocal(from)
	if err != nil {
		return decimal.Zero, err
	}
	local := amount.Mul(srcRate)
	if to == core.LocalCurrency {
		return local, nil
	}

	dstRate, err := rates.rateToLocal(to)
	if err != nil {
		return decimal.Zero, err
	}
	return local.Div(dstRate), nil
}

// Validate checks that a view currency can be served from the rate table.
// The local currency is always servable.
func (r Rates) Validate(view core.Currency) error {
	_, err := r.rateToLocal(view)
	return err
}
