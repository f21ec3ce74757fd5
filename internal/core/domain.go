package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"

	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"

	FixedDay   MonthType = "fixed"
	SpecialDay MonthType = "special"

	BankAsset AssetKind = "bank"
	FundAsset AssetKind = "fund"

	SourceManual    Source = "manual"
	SourceExcel     Source = "excel"
	SourceRecurring Source = "recurring"

	Daily       Granularity = "daily"
	WeeklyView  Granularity = "weekly"
	MonthlyView Granularity = "monthly"
)

type (
	Direction   string
	Frequency   string
	MonthType   string
	AssetKind   string
	Source      string
	Granularity string

	// Asset is a bank account or fund position. Included assets form the
	// baseline balance of a projection.
	Asset struct {
		ID       string          `json:"id"`
		Kind     AssetKind       `json:"kind"`
		Name     string          `json:"name"`
		SubKind  string          `json:"subKind"`
		Currency Currency        `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
		Included bool            `json:"included"`
	}

	// Check is a post-dated customer check. EffectiveDate is resolved once at
	// create/edit time (due date + valor days, shifted to a business day) and
	// stored, never recomputed on read.
	Check struct {
		ID            string          `json:"id"`
		DueDate       string          `json:"dueDate"`
		Valor         int             `json:"valor"`
		EffectiveDate string          `json:"effectiveDate"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
	}

	// RecurringRule describes a repeating income or expense. Weekly rules fire
	// on the listed ISO weekdays (1=Monday..7=Sunday). Monthly rules fire
	// either on a fixed day of month or on an ordinal weekday ("2nd Monday",
	// "last Friday"); ordinal 5 means the last occurrence in the month.
	RecurringRule struct {
		ID          string          `json:"id"`
		Direction   Direction       `json:"direction"`
		StartDate   string          `json:"startDate"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    Currency        `json:"currency"`
		Description string          `json:"description"`
		Freq        Frequency       `json:"freq"`
		WeekDays    []int           `json:"weekDays,omitempty"`
		MonthType   MonthType       `json:"monthType,omitempty"`
		FixedDayNum int             `json:"fixedDay,omitempty"`
		SpecialOrd  int             `json:"specialOrd,omitempty"`
		SpecialWday int             `json:"specialDay,omitempty"`
	}

	// Transaction is a dated cash movement: entered manually, imported from a
	// receivables spreadsheet, or synthesized from a recurring rule.
	Transaction struct {
		ID          string          `json:"id"`
		Direction   Direction       `json:"direction"`
		Date        string          `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    Currency        `json:"currency"`
		Description string          `json:"description"`
		Source      Source          `json:"source,omitempty"`
		SourceTab   string          `json:"sourceTab,omitempty"`
	}

	// CustomTab is a user-defined grouping bucket for imported transactions.
	CustomTab struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrMissingStartDate = errors.New("missing start date")
	ErrMissingDueDate   = errors.New("missing due date")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrInvalidOrdinal   = errors.New("invalid ordinal")
	ErrInvalidMonthRule = errors.New("invalid monthly rule")
	ErrInvalidKind      = errors.New("invalid asset kind")
	ErrNegativeValor    = errors.New("valor cannot be negative")

	ErrInvalidGranularity = errors.New("invalid granularity")
)

func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

func (g Granularity) Valid() bool {
	switch g {
	case Daily, WeeklyView, MonthlyView:
		return true
	default:
		return false
	}
}

func (a Asset) Validate() error {
	if a.Kind != BankAsset && a.Kind != FundAsset {
		return ErrInvalidKind
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyDescription
	}
	return a.Currency.Validate()
}

func (c Check) Validate() error {
	if strings.TrimSpace(c.DueDate) == "" {
		return ErrMissingDueDate
	}
	if _, err := ParseYMD(c.DueDate); err != nil {
		return ErrInvalidDate
	}
	if c.Valor < 0 {
		return ErrNegativeValor
	}
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if !r.Direction.Valid() {
		return ErrInvalidDirection
	}
	if strings.TrimSpace(r.StartDate) == "" {
		return ErrMissingStartDate
	}
	if _, err := ParseYMD(r.StartDate); err != nil {
		return ErrInvalidDate
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if err := r.Currency.Validate(); err != nil {
		return err
	}

	switch r.Freq {
	case Weekly:
		if len(r.WeekDays) == 0 {
			return ErrInvalidWeekday
		}
		for _, wd := range r.WeekDays {
			if wd < 1 || wd > 7 {
				return ErrInvalidWeekday
			}
		}
	case Monthly:
		switch r.MonthType {
		case FixedDay:
			if r.FixedDayNum < 1 || r.FixedDayNum > 31 {
				return ErrInvalidMonthRule
			}
		case SpecialDay:
			if r.SpecialOrd < 1 || r.SpecialOrd > 5 {
				return ErrInvalidOrdinal
			}
			// Ordinal-weekday rules cover business weekdays only.
			if r.SpecialWday < 1 || r.SpecialWday > 5 {
				return ErrInvalidWeekday
			}
		default:
			return ErrInvalidMonthRule
		}
	default:
		return ErrInvalidFrequency
	}

	return nil
}

func (t Transaction) Validate() error {
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if _, err := ParseYMD(t.Date); err != nil {
		return ErrInvalidDate
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return t.Currency.Validate()
}
