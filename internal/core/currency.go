package core

import "errors"

// Currency is an ISO-ish currency tag. The dashboard historically labels the
// Turkish lira "TL" rather than "TRY", so that spelling is kept on the wire.
type Currency string

const (
	TRY Currency = "TL"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// LocalCurrency is the pivot for all cross-currency conversion: every exchange
// rate is quoted as units of local currency per 1 foreign unit.
const LocalCurrency = TRY

var ErrUnknownCurrency = errors.New("unknown currency")

// SupportedCurrencies lists the currencies the projection can be viewed in.
var SupportedCurrencies = []Currency{TRY, EUR, USD}

func (c Currency) Validate() error {
	switch c {
	case TRY, EUR, USD:
		return nil
	default:
		return ErrUnknownCurrency
	}
}
