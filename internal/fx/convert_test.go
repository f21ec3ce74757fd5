package fx

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"nakit/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConvert(t *testing.T) {
	rates := Rates{
		core.EUR: dec("36.50"),
		core.USD: dec("32.00"),
	}

	tests := []struct {
		name   string
		amount string
		from   core.Currency
		to     core.Currency
		want   string
	}{
		{"identity", "100", core.TRY, core.TRY, "100"},
		{"identity foreign", "100", core.EUR, core.EUR, "100"},
		{"eur to local", "10", core.EUR, core.TRY, "365"},
		{"local to eur", "365", core.TRY, core.EUR, "10"},
		{"usd to local", "2", core.USD, core.TRY, "64"},
		{"cross via local pivot", "32", core.EUR, core.USD, "36.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(dec(tt.amount), tt.from, tt.to, rates)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Convert(%s %s -> %s) = %s, want %s", tt.amount, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name  string
		rates Rates
		from  core.Currency
		to    core.Currency
		want  error
	}{
		{"missing source rate", Rates{}, core.EUR, core.TRY, ErrMissingRate},
		{"missing target rate", Rates{core.EUR: dec("36.50")}, core.EUR, core.USD, ErrMissingRate},
		{"zero rate", Rates{core.EUR: decimal.Zero}, core.EUR, core.TRY, ErrInvalidRate},
		{"negative rate", Rates{core.USD: dec("-1")}, core.TRY, core.USD, ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(dec("10"), tt.from, tt.to, tt.rates)
			if !errors.Is(err, tt.want) {
				t.Errorf("Convert() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRatesValidate(t *testing.T) {
	rates := Rates{core.EUR: dec("36.50")}
	if err := rates.Validate(core.TRY); err != nil {
		t.Errorf("local currency always servable, got %v", err)
	}
	if err := rates.Validate(core.EUR); err != nil {
		t.Errorf("quoted currency servable, got %v", err)
	}
	if err := rates.Validate(core.USD); !errors.Is(err, ErrMissingRate) {
		t.Errorf("unquoted currency: got %v, want %v", err, ErrMissingRate)
	}
}
