package jdf

import (
	"fmt"
	"time"
)

const DateFormat = "02012006"

// Date is a day-granularity calendar date. Validity intervals in the
// legacy format are inclusive on both ends.
type Date struct {
	time.Time
}

func ParseDate(value string) (Date, error) {
	parsed, err := time.Parse(DateFormat, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", value, err)
	}

	return Date{parsed}, nil
}

func MustParseDate(value string) Date {
	date, err := ParseDate(value)
	if err != nil {
		panic(err)
	}

	return date
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateFormat)
}

func (d Date) AddDays(days int) Date {
	return Date{d.AddDate(0, 0, days)}
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}
