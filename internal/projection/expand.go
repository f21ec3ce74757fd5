// Package projection is the forecasting engine of the dashboard. It expands
// recurring rules into dated occurrences, builds the calendar periods for a
// granularity, and folds every cash source into a running projected balance.
// The whole package is a pure function of its inputs: "today" is always
// injected, nothing is persisted, and every call returns a fresh result.
package projection

import (
	"fmt"
	"time"

	"nakit/internal/core"
)

// ExpandRule turns a recurring rule into concrete transactions between
// windowStart and windowEnd inclusive. Expansion is idempotent: the same rule
// and window always produce the same dates and the same synthesized IDs, so
// occurrences are stable across projection runs. No occurrence ever predates
// the rule's start date.
func ExpandRule(rule core.RecurringRule, windowStart, windowEnd time.Time) ([]core.Transaction, error) {
	start, err := core.ParseYMD(rule.StartDate)
	if err != nil {
		return nil, core.ErrInvalidDate
	}

	d := core.Midnight(windowStart)
	if start = core.Midnight(start); start.After(d) {
		d = start
	}
	endKey := core.YMD(windowEnd)

	var out []core.Transaction

	// Resolved target for special monthly rules, computed once per month.
	var specialMonth time.Month
	var specialYear int
	var specialKey string
	var specialOK bool

	for ; ; d = d.AddDate(0, 0, 1) {
		key := core.YMD(d)
		if key > endKey {
			break
		}

		match := false
		switch rule.Freq {
		case core.Weekly:
			wd := core.ISOWeekday(d)
			for _, want := range rule.WeekDays {
				if wd == want {
					match = true
					break
				}
			}
		case core.Monthly:
			switch rule.MonthType {
			case core.FixedDay:
				target := rule.FixedDayNum
				if last := core.DaysInMonth(d.Year(), d.Month()); target > last {
					target = last
				}
				match = d.Day() == target
			case core.SpecialDay:
				if d.Year() != specialYear || d.Month() != specialMonth {
					specialYear, specialMonth = d.Year(), d.Month()
					specialKey, specialOK = specialWeekdayTarget(specialYear, specialMonth, rule.SpecialOrd, rule.SpecialWday)
				}
				match = specialOK && key == specialKey
			}
		}

		if match {
			out = append(out, core.Transaction{
				ID:          fmt.Sprintf("rec-%s-%s", rule.ID, key),
				Direction:   rule.Direction,
				Date:        key,
				Amount:      rule.Amount,
				Currency:    rule.Currency,
				Description: rule.Description,
				Source:      core.SourceRecurring,
			})
		}
	}

	return out, nil
}

// specialWeekdayTarget resolves "nth weekday of the month" to a date key.
// Ordinal 5 means the last occurrence, found by scanning back from month end;
// ordinals 1..4 count forward from the 1st and yield nothing when the month
// has fewer occurrences of that weekday.
func specialWeekdayTarget(year int, month time.Month, ord, weekday int) (string, bool) {
	if ord == 5 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local)
		for k := 0; k < 7; k++ {
			d := last.AddDate(0, 0, -k)
			if core.ISOWeekday(d) == weekday {
				return core.YMD(d), true
			}
		}
		return "", false
	}

	count := 0
	for day := 1; day <= core.DaysInMonth(year, month); day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		if core.ISOWeekday(d) == weekday {
			count++
			if count == ord {
				return core.YMD(d), true
			}
		}
	}
	return "", false
}
