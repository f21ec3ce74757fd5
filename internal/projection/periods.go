package projection

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"nakit/internal/core"
)

// FlowPeriod is one bucket of the projection timeline. Start and End are
// inclusive day keys in YYYY-MM-DD form; Balance is the running total after
// this period's net movement. Details maps each description to its signed
// contribution in the view currency.
type FlowPeriod struct {
	Start    string                     `json:"start"`
	End      string                     `json:"end"`
	Label    string                     `json:"label"`
	Incomes  decimal.Decimal            `json:"incomes"`
	Expenses decimal.Decimal            `json:"expenses"`
	Balance  decimal.Decimal            `json:"balance"`
	Details  map[string]decimal.Decimal `json:"details"`
}

const (
	dailyPeriodCount   = 46
	weeklyPeriodCount  = 12
	monthlyPeriodCount = 6
)

// BuildPeriods constructs the consecutive, non-overlapping buckets for a
// granularity, anchored on today. Daily yields 46 single-day periods starting
// today; weekly yields 12 periods where the first one ends on the upcoming
// Sunday (so it may be shorter than seven days); monthly yields 6 calendar
// months starting on the first day of the current month, which can reach back
// before today.
func BuildPeriods(g core.Granularity, today time.Time) ([]FlowPeriod, error) {
	today = core.Midnight(today)

	switch g {
	case core.Daily:
		periods := make([]FlowPeriod, 0, dailyPeriodCount)
		for i := 0; i < dailyPeriodCount; i++ {
			d := today.AddDate(0, 0, i)
			key := core.YMD(d)
			periods = append(periods, newPeriod(key, key, d.Format("02.01.2006 Monday")))
		}
		return periods, nil

	case core.WeeklyView:
		periods := make([]FlowPeriod, 0, weeklyPeriodCount)
		current := today
		for i := 0; i < weeklyPeriodCount; i++ {
			weekEnd := current.AddDate(0, 0, 7-core.ISOWeekday(current))
			label := fmt.Sprintf("%s - %s", current.Format("02.01"), weekEnd.Format("02.01"))
			periods = append(periods, newPeriod(core.YMD(current), core.YMD(weekEnd), label))
			current = weekEnd.AddDate(0, 0, 1)
		}
		return periods, nil

	case core.MonthlyView:
		periods := make([]FlowPeriod, 0, monthlyPeriodCount)
		current := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.Local)
		for i := 0; i < monthlyPeriodCount; i++ {
			monthEnd := time.Date(current.Year(), current.Month()+1, 0, 0, 0, 0, 0, time.Local)
			periods = append(periods, newPeriod(core.YMD(current), core.YMD(monthEnd), current.Format("January 2006")))
			current = monthEnd.AddDate(0, 0, 1)
		}
		return periods, nil
	}

	return nil, fmt.Errorf("granularity %q: %w", g, core.ErrInvalidGranularity)
}

func newPeriod(start, end, label string) FlowPeriod {
	return FlowPeriod{
		Start:   start,
		End:     end,
		Label:   label,
		Details: make(map[string]decimal.Decimal),
	}
}
