// Package core holds the domain model of the cash-flow dashboard: assets,
// checks, recurring rules, transactions, and the calendar arithmetic they
// share. Dates are compared exclusively through their local "YYYY-MM-DD"
// rendering so day equality is calendar-exact regardless of DST.
package core

import "time"

// YMDLayout is the canonical date key format used throughout the engine.
const YMDLayout = "2006-01-02"

// YMD renders a time as its local calendar day. Two times fall on the same
// day iff their YMD strings are equal; string ordering equals date ordering.
func YMD(t time.Time) string {
	return t.Format(YMDLayout)
}

// ParseYMD parses a "YYYY-MM-DD" string into a local-midnight time.
func ParseYMD(s string) (time.Time, error) {
	return time.ParseInLocation(YMDLayout, s, time.Local)
}

// Midnight truncates a time to local midnight of the same calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ISOWeekday maps a time's weekday to ISO numbering (Monday=1..Sunday=7).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextBusinessDay shifts weekend dates forward to the following Monday.
// Weekday dates pass through unchanged.
func NextBusinessDay(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

// BoschCollectionDay normalizes a payment date to the nearest collection day
// under the Bosch schedule, where checks are collectible on Mondays and
// Thursdays only: Thursday and Monday stay, Friday pulls back to Thursday,
// Tuesday and Wednesday pull back to Monday, the weekend pushes forward to
// Monday. The shift depends on the weekday alone.
func BoschCollectionDay(t time.Time) time.Time {
	d := Midnight(t)
	switch d.Weekday() {
	case time.Friday:
		return d.AddDate(0, 0, -1)
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	case time.Tuesday:
		return d.AddDate(0, 0, -1)
	case time.Wednesday:
		return d.AddDate(0, 0, -2)
	default: // Monday, Thursday
		return d
	}
}

// ResolveEffectiveDate computes and stores the check's collection date: due
// date plus valor days, shifted past the weekend if needed. The result is
// always on or after the due date and always a business day.
func (c *Check) ResolveEffectiveDate() error {
	due, err := ParseYMD(c.DueDate)
	if err != nil {
		return ErrInvalidDate
	}
	c.EffectiveDate = YMD(NextBusinessDay(due.AddDate(0, 0, c.Valor)))
	return nil
}
