package dateutil

import (
	"fmt"
	"time"
)

// ISODate is the wire layout for calendar dates (no time, no zone)
const ISODate = "2006-01-02"

// Date returns the calendar date y-m-d at midnight UTC.
// Out-of-range values are normalized the same way time.Date does it.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CalendarDay strips time and location: the wall-clock date becomes midnight UTC
func CalendarDay(date time.Time) time.Time {
	return Date(date.Year(), date.Month(), date.Day())
}

// StartOfMonth returns the 1st of the month containing date
func StartOfMonth(date time.Time) time.Time {
	return Date(date.Year(), date.Month(), 1)
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths shifts a (year, month) pair by n months, rolling the year
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	t := Date(year, month, 1).AddDate(0, n, 0)
	return t.Year(), t.Month()
}

// GridStart returns the Sunday on or before the 1st of the month
func GridStart(year int, month time.Month) time.Time {
	first := Date(year, month, 1)
	return first.AddDate(0, 0, -int(first.Weekday()))
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// FormatISO formats the calendar part of date as YYYY-MM-DD
func FormatISO(date time.Time) string {
	return date.Format(ISODate)
}

// ParseISO parses a strict YYYY-MM-DD string.
// Impossible dates such as 2023-02-29 are rejected.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return t, nil
}

// IsValidISO reports whether s is a real calendar date in YYYY-MM-DD form
func IsValidISO(s string) bool {
	_, err := ParseISO(s)
	return err == nil
}

// ParseDate parses date string in various formats
func ParseDate(dateStr string) (time.Time, error) {
	formats := []string{
		ISODate,
		"02/01/2006",
		"02.01.2006",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", dateStr)
}

// ParseMonth parses a YYYY-MM string into a (year, month) pair
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// Today returns today's calendar date
func Today() time.Time {
	return CalendarDay(time.Now())
}
