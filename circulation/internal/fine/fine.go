// Package fine computes overdue days and fine amounts. It is pure:
// the caller supplies the reference instant, the package never reads
// the clock.
package fine

import (
	"time"
)

// DefaultRatePerDay is the fallback fine rate in currency units.
const DefaultRatePerDay int64 = 10

// Calc returns the number of whole days the loan is late as of asOf
// and the resulting fine. Both instants are compared as civil dates;
// asOf on or before the due date yields zero.
func Calc(due, asOf time.Time, ratePerDay int64) (overdueDays int, amount int64) {
	d := civilDate(due)
	a := civilDate(asOf)
	if !a.After(d) {
		return 0, 0
	}
	overdueDays = int(a.Sub(d) / (24 * time.Hour))
	return overdueDays, int64(overdueDays) * ratePerDay
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
