package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecurringRuleValidate(t *testing.T) {
	valid := RecurringRule{
		ID:          "r1",
		Direction:   Income,
		StartDate:   "2024-01-01",
		Amount:      decimal.NewFromInt(1000),
		Currency:    TRY,
		Description: "Maaş",
		Freq:        Weekly,
		WeekDays:    []int{1, 5},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid weekly rule failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RecurringRule)
		want   error
	}{
		{"bad direction", func(r *RecurringRule) { r.Direction = "transfer" }, ErrInvalidDirection},
		{"no start date", func(r *RecurringRule) { r.StartDate = "" }, ErrMissingStartDate},
		{"malformed start date", func(r *RecurringRule) { r.StartDate = "01.01.2024" }, ErrInvalidDate},
		{"zero amount", func(r *RecurringRule) { r.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(r *RecurringRule) { r.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"blank description", func(r *RecurringRule) { r.Description = "  " }, ErrEmptyDescription},
		{"unknown currency", func(r *RecurringRule) { r.Currency = "GBP" }, ErrUnknownCurrency},
		{"empty weekday set", func(r *RecurringRule) { r.WeekDays = nil }, ErrInvalidWeekday},
		{"weekday out of range", func(r *RecurringRule) { r.WeekDays = []int{8} }, ErrInvalidWeekday},
		{"unknown frequency", func(r *RecurringRule) { r.Freq = "yearly" }, ErrInvalidFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecurringRuleValidateMonthly(t *testing.T) {
	base := RecurringRule{
		ID:          "r2",
		Direction:   Expense,
		StartDate:   "2024-01-01",
		Amount:      decimal.NewFromInt(250),
		Currency:    TRY,
		Description: "Kira",
		Freq:        Monthly,
	}

	tests := []struct {
		name   string
		mutate func(*RecurringRule)
		want   error
	}{
		{"fixed day ok", func(r *RecurringRule) { r.MonthType = FixedDay; r.FixedDayNum = 31 }, nil},
		{"fixed day zero", func(r *RecurringRule) { r.MonthType = FixedDay }, ErrInvalidMonthRule},
		{"fixed day out of range", func(r *RecurringRule) { r.MonthType = FixedDay; r.FixedDayNum = 32 }, ErrInvalidMonthRule},
		{"special ok", func(r *RecurringRule) { r.MonthType = SpecialDay; r.SpecialOrd = 5; r.SpecialWday = 5 }, nil},
		{"special ordinal out of range", func(r *RecurringRule) { r.MonthType = SpecialDay; r.SpecialOrd = 6; r.SpecialWday = 1 }, ErrInvalidOrdinal},
		{"special weekend weekday rejected", func(r *RecurringRule) { r.MonthType = SpecialDay; r.SpecialOrd = 1; r.SpecialWday = 6 }, ErrInvalidWeekday},
		{"missing month type", func(r *RecurringRule) {}, ErrInvalidMonthRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			if err := r.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ID:          "t1",
		Direction:   Expense,
		Date:        "2024-07-01",
		Amount:      decimal.NewFromFloat(149.90),
		Currency:    TRY,
		Description: "Elektrik",
		Source:      SourceManual,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"bad date", func(tr *Transaction) { tr.Date = "tomorrow" }, ErrInvalidDate},
		{"bad direction", func(tr *Transaction) { tr.Direction = "" }, ErrInvalidDirection},
		{"zero amount", func(tr *Transaction) { tr.Amount = decimal.Zero }, ErrInvalidAmount},
		{"blank description", func(tr *Transaction) { tr.Description = "" }, ErrEmptyDescription},
		{"unknown currency", func(tr *Transaction) { tr.Currency = "JPY" }, ErrUnknownCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid
			tt.mutate(&tr)
			if err := tr.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckValidate(t *testing.T) {
	valid := Check{ID: "c1", DueDate: "2024-08-15", Valor: 5, Amount: decimal.NewFromInt(75000)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid check failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Check)
		want   error
	}{
		{"no due date", func(c *Check) { c.DueDate = "" }, ErrMissingDueDate},
		{"malformed due date", func(c *Check) { c.DueDate = "15 Ağustos" }, ErrInvalidDate},
		{"negative valor", func(c *Check) { c.Valor = -1 }, ErrNegativeValor},
		{"zero amount", func(c *Check) { c.Amount = decimal.Zero }, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAssetValidate(t *testing.T) {
	valid := Asset{ID: "a1", Kind: BankAsset, Name: "Vadesiz TL", Currency: TRY, Amount: decimal.NewFromInt(10000), Included: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid asset failed validation: %v", err)
	}
	if err := (Asset{Kind: "crypto", Name: "x", Currency: TRY}).Validate(); err != ErrInvalidKind {
		t.Errorf("unknown kind: got %v, want %v", err, ErrInvalidKind)
	}
	if err := (Asset{Kind: FundAsset, Name: " ", Currency: EUR}).Validate(); err != ErrEmptyDescription {
		t.Error("blank name should fail validation")
	}
}
