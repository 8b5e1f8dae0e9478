package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or location.
// It is used for "when this happened" dates and for trigger dates.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a Date normalized through time.Date (e.g. Feb 30 becomes Mar 2)
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// DateOf returns the calendar date of t in loc. A nil loc means UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, goerr.Wrap(err, "invalid date", goerr.V("date", s))
	}
	return DateOf(t, time.UTC), nil
}

// MustParseDate is ParseDate that panics on error. Intended for tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n), time.UTC)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) MonthDay() MonthDay {
	return NewMonthDay(d.Month, d.Day)
}

// IsLeapYear reports whether the date's year has a February 29
func (d Date) IsLeapYear() bool {
	y := d.Year
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// DateKeys returns the month-day keys whose memories fall on this date.
// On Feb 28 of a non-leap year the leap day is included so that Feb 29
// memories are not skipped for three years out of four.
func (d Date) DateKeys() []MonthDay {
	keys := []MonthDay{d.MonthDay()}
	if d.Month == time.February && d.Day == 28 && !d.IsLeapYear() {
		keys = append(keys, LeapDay)
	}
	return keys
}

// YearsSince returns the number of whole calendar years between past and d
func (d Date) YearsSince(past Date) int {
	years := d.Year - past.Year
	if d.Month < past.Month || (d.Month == past.Month && d.Day < past.Day) {
		years--
	}
	return years
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthDay is a "MM-DD" key used for date-matched lookups
type MonthDay string

// LeapDay is the month-day key of February 29
const LeapDay MonthDay = "02-29"

func NewMonthDay(month time.Month, day int) MonthDay {
	return MonthDay(fmt.Sprintf("%02d-%02d", int(month), day))
}

func (m MonthDay) String() string {
	return string(m)
}
