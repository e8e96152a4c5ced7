// Package interval resolves relative month and year specifiers into
// half-open time windows used to scope reports and transaction queries.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval reports a month/year combination that does not
// designate a calendar window.
var ErrInvalidInterval = errors.New("invalid interval")

// ErrInvalidDate reports a calendar date that does not exist.
var ErrInvalidDate = errors.New("invalid date")

// now is a seam for tests.
var now = time.Now

// Window is a half-open time window [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// AbsoluteMonth translates a month relative to the current date into a
// calendar month. Values in [1, 12] are returned unchanged. Zero means the
// current month, -n the n-th previous month, and n > 12 the (n-12)-th next
// month.
func AbsoluteMonth(relative int) time.Month {
	if 1 <= relative && relative <= 12 {
		return time.Month(relative)
	}
	m := (int(now().Month()) + relative) % 12
	if m <= 0 {
		m += 12
	}
	return time.Month(m)
}

// AbsoluteYear translates a year relative to the current date into a
// calendar year. Positive values are returned unchanged; zero means the
// current year and -n the n-th previous year.
func AbsoluteYear(relative int) int {
	if relative > 0 {
		return relative
	}
	return now().Year() + relative
}

// MakeDate builds a UTC midnight timestamp for the given calendar date. It
// fails with ErrInvalidDate when the date does not exist (e.g. February 31):
// impossible dates are never silently clamped or rolled over.
func MakeDate(year int, month time.Month, day int) (time.Time, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	ty, tm, td := t.Date()
	if ty != year || tm != month || td != day {
		return time.Time{}, fmt.Errorf("%w: year %d, month %d, day %d", ErrInvalidDate, year, month, day)
	}
	return t, nil
}

// AdvanceYears shifts a date by the given number of years, keeping month and
// day. It fails with ErrInvalidDate when the target day does not exist
// (February 29 outside leap years).
func AdvanceYears(origin time.Time, shift int) (time.Time, error) {
	return MakeDate(origin.Year()+shift, origin.Month(), origin.Day())
}

// AdvanceMonths shifts a date by the given number of months, keeping the
// day. It fails with ErrInvalidDate when the target day does not exist in
// the destination month (e.g. January 31 plus one month).
func AdvanceMonths(origin time.Time, shift int) (time.Time, error) {
	years, months := shift/12, shift%12

	// months is in (-12, 12), so the raw month lands in (-11, 24) and needs
	// at most one year of carry in either direction.
	month := int(origin.Month()) + months
	switch {
	case month < 1:
		month += 12
		years--
	case month > 12:
		month -= 12
		years++
	}

	return MakeDate(origin.Year()+years, time.Month(month), origin.Day())
}

// Resolve turns a (month, year) specifier into a half-open window.
//
// A zero month selects the whole year AbsoluteYear(year). A month in
// [1, 12] selects that month of AbsoluteYear(year). A relative month
// (negative or greater than 12) is anchored to the current date and cannot
// be combined with an explicit or relative year: that combination fails
// with ErrInvalidInterval.
func Resolve(month, year int) (Window, error) {
	if month == 0 {
		y := AbsoluteYear(year)
		start, err := MakeDate(y, time.January, 1)
		if err != nil {
			return Window{}, err
		}
		return Window{Start: start, End: start.AddDate(1, 0, 0)}, nil
	}

	if month < 1 || month > 12 {
		if year != 0 {
			return Window{}, fmt.Errorf("%w: relative month %d with year %d", ErrInvalidInterval, month, year)
		}
		offset := month
		if month > 12 {
			// Over twelve means the (n-12)-th next month.
			offset = month - 12
		}
		return monthWindow(shiftedMonth(offset))
	}

	return monthWindow(AbsoluteYear(year), time.Month(month))
}

// shiftedMonth resolves the calendar year and month at the given offset
// from the current month, carrying across year boundaries.
func shiftedMonth(offset int) (int, time.Month) {
	t := now()
	y, m := t.Year(), int(t.Month())+offset
	for m < 1 {
		m += 12
		y--
	}
	for m > 12 {
		m -= 12
		y++
	}
	return y, time.Month(m)
}

func monthWindow(year int, month time.Month) (Window, error) {
	start, err := MakeDate(year, month, 1)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}
