package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
)

// DayType represents the type of day
type DayType int

const (
	DayTypeWorkday DayType = iota + 1
	DayTypeWeekend
	DayTypeHoliday
	DayTypeShortened
)

var dayTypeNames = map[DayType]string{
	DayTypeWorkday:   "workday",
	DayTypeWeekend:   "weekend",
	DayTypeHoliday:   "holiday",
	DayTypeShortened: "shortened",
}

func (t DayType) String() string {
	if name, ok := dayTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DayType(%d)", int(t))
}

// ParseDayType is the inverse of DayType.String
func ParseDayType(s string) (DayType, error) {
	for t, name := range dayTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown day type %q", s)
}

// DayInfo represents information about a specific day
type DayInfo struct {
	Date         time.Time
	Type         DayType
	WorkingHours int
	IsWorkday    bool
	Note         string
}

// MonthInfo represents calendar information for a month
type MonthInfo struct {
	Year         int
	Month        time.Month
	WorkingHours int // Total working hours in the month
	WorkDays     int
	Weekends     int
	Holidays     int
	Days         []DayInfo
}

// Day returns the entry for the given day of the month
func (m *MonthInfo) Day(day int) (*DayInfo, bool) {
	for i := range m.Days {
		if m.Days[i].Date.Day() == day {
			return &m.Days[i], true
		}
	}
	return nil, false
}

// Calendar is a source of working-day information
type Calendar interface {
	// IsWorkday checks if the given date is a working day
	IsWorkday(ctx context.Context, date time.Time) (bool, int, error)

	// GetMonthInfo returns calendar info for the entire month
	GetMonthInfo(ctx context.Context, year int, month time.Month) (*MonthInfo, error)

	// GetDayInfo returns detailed info for a specific day
	GetDayInfo(ctx context.Context, date time.Time) (*DayInfo, error)
}

// Cache is implemented by calendars that keep fetched data in memory
type Cache interface {
	ClearCache()
}

// Holidays lists the holiday dates between from and to (inclusive) as ISO strings,
// ready to be used as selector constraints.
func Holidays(ctx context.Context, cal Calendar, from, to time.Time) ([]string, error) {
	from, to = dateutil.CalendarDay(from), dateutil.CalendarDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", dateutil.FormatISO(to), dateutil.FormatISO(from))
	}

	var holidays []string
	year, month := from.Year(), from.Month()
	last := dateutil.StartOfMonth(to)

	for {
		first := dateutil.Date(year, month, 1)
		if first.After(last) {
			break
		}

		info, err := cal.GetMonthInfo(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("failed to get month %d-%02d: %w", year, month, err)
		}

		for _, day := range info.Days {
			d := dateutil.CalendarDay(day.Date)
			if day.Type != DayTypeHoliday || d.Before(from) || d.After(to) {
				continue
			}
			holidays = append(holidays, dateutil.FormatISO(d))
		}

		year, month = dateutil.AddMonths(year, month, 1)
	}

	sort.Strings(holidays)
	return holidays, nil
}

// HolidaySpanYears is how many years either side of today HolidayRange
// covers when no bound is configured
const HolidaySpanYears = 1

// HolidayRange returns the range holidays are loaded for: the configured
// min/max dates (YYYY-MM-DD), with a missing or malformed side replaced by
// the edge of the year HolidaySpanYears away from now.
func HolidayRange(now time.Time, minDate, maxDate string) (time.Time, time.Time) {
	from := dateutil.Date(now.Year()-HolidaySpanYears, time.January, 1)
	to := dateutil.Date(now.Year()+HolidaySpanYears, time.December, 31)

	minSet, maxSet := false, false
	if d, err := dateutil.ParseISO(minDate); err == nil {
		from, minSet = d, true
	}
	if d, err := dateutil.ParseISO(maxDate); err == nil {
		to, maxSet = d, true
	}

	// A single bound far from today still gets a non-empty window.
	if to.Before(from) {
		switch {
		case minSet && !maxSet:
			to = dateutil.Date(from.Year()+HolidaySpanYears, time.December, 31)
		case maxSet && !minSet:
			from = dateutil.Date(to.Year()-HolidaySpanYears, time.January, 1)
		}
	}
	return from, to
}

// findDay looks up a single day in month data
func findDay(info *MonthInfo, date time.Time) (*DayInfo, error) {
	if day, ok := info.Day(date.Day()); ok {
		return day, nil
	}
	return nil, fmt.Errorf("day not found in calendar: %s", dateutil.FormatISO(date))
}
