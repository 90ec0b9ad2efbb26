package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL     = 24 * time.Hour
	defaultWorkdayHours = 8
)

// Holiday is one non-working date announced by the holidays endpoint
type Holiday struct {
	Date time.Time
	Name string
}

// HolidayFetcher downloads the full holiday list
type HolidayFetcher interface {
	FetchHolidays(ctx context.Context) ([]Holiday, error)
}

// HolidayFetcherFunc adapts a plain function to HolidayFetcher
type HolidayFetcherFunc func(ctx context.Context) ([]Holiday, error)

// FetchHolidays calls f(ctx)
func (f HolidayFetcherFunc) FetchHolidays(ctx context.Context) ([]Holiday, error) {
	return f(ctx)
}

// RemoteCalendar implements Calendar from the holidays API.
// Monday-Friday are workdays unless listed as holidays; Saturday and Sunday are weekends.
type RemoteCalendar struct {
	fetcher      HolidayFetcher
	cacheTTL     time.Duration
	workdayHours int
	logger       *zap.Logger
	now          func() time.Time

	cacheMu  sync.RWMutex
	holidays *cachedHolidays
	months   map[string]*cachedMonth
}

type cachedHolidays struct {
	data      map[string]string // ISO date → name
	fetchedAt time.Time
}

type cachedMonth struct {
	data      *MonthInfo
	fetchedAt time.Time
}

// NewRemoteCalendar creates a new RemoteCalendar instance
func NewRemoteCalendar(fetcher HolidayFetcher, cacheTTL time.Duration, logger *zap.Logger) *RemoteCalendar {
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}

	return &RemoteCalendar{
		fetcher:      fetcher,
		cacheTTL:     cacheTTL,
		workdayHours: defaultWorkdayHours,
		logger:       logger,
		now:          time.Now,
		months:       make(map[string]*cachedMonth),
	}
}

// IsWorkday checks if the given date is a working day
func (rc *RemoteCalendar) IsWorkday(ctx context.Context, date time.Time) (bool, int, error) {
	dayInfo, err := rc.GetDayInfo(ctx, date)
	if err != nil {
		return false, 0, err
	}

	return dayInfo.IsWorkday, dayInfo.WorkingHours, nil
}

// GetDayInfo returns detailed info for a specific day
func (rc *RemoteCalendar) GetDayInfo(ctx context.Context, date time.Time) (*DayInfo, error) {
	monthInfo, err := rc.GetMonthInfo(ctx, date.Year(), date.Month())
	if err != nil {
		return nil, err
	}

	return findDay(monthInfo, date)
}

// GetMonthInfo returns calendar info for the entire month
func (rc *RemoteCalendar) GetMonthInfo(ctx context.Context, year int, month time.Month) (*MonthInfo, error) {
	key := monthKey(year, month)

	rc.cacheMu.RLock()
	if cached, ok := rc.months[key]; ok && rc.now().Sub(cached.fetchedAt) < rc.cacheTTL {
		rc.cacheMu.RUnlock()
		rc.logger.Debug("Using cached month info", zap.String("month", key))
		return cached.data, nil
	}
	rc.cacheMu.RUnlock()

	holidays, err := rc.loadHolidays(ctx)
	if err != nil {
		return nil, err
	}

	monthInfo := rc.buildMonth(year, month, holidays)

	rc.cacheMu.Lock()
	rc.months[key] = &cachedMonth{
		data:      monthInfo,
		fetchedAt: rc.now(),
	}
	rc.cacheMu.Unlock()

	rc.logger.Debug("Month info built from holidays API",
		zap.String("month", key),
		zap.Int("holidays", monthInfo.Holidays),
		zap.Int("working_hours", monthInfo.WorkingHours))

	return monthInfo, nil
}

// loadHolidays returns the cached holiday list, refetching it after cacheTTL
func (rc *RemoteCalendar) loadHolidays(ctx context.Context) (map[string]string, error) {
	rc.cacheMu.RLock()
	cached := rc.holidays
	rc.cacheMu.RUnlock()

	if cached != nil && rc.now().Sub(cached.fetchedAt) < rc.cacheTTL {
		return cached.data, nil
	}

	list, err := rc.fetcher.FetchHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	data := make(map[string]string, len(list))
	for _, h := range list {
		data[dateutil.FormatISO(dateutil.CalendarDay(h.Date))] = h.Name
	}

	rc.cacheMu.Lock()
	rc.holidays = &cachedHolidays{data: data, fetchedAt: rc.now()}
	rc.cacheMu.Unlock()

	rc.logger.Info("Holidays fetched", zap.Int("count", len(data)))

	return data, nil
}

func (rc *RemoteCalendar) buildMonth(year int, month time.Month, holidays map[string]string) *MonthInfo {
	days := dateutil.DaysInMonth(year, month)
	monthInfo := &MonthInfo{
		Year:  year,
		Month: month,
		Days:  make([]DayInfo, 0, days),
	}

	for d := 1; d <= days; d++ {
		date := dateutil.Date(year, month, d)
		day := DayInfo{Date: date}

		if name, ok := holidays[dateutil.FormatISO(date)]; ok {
			day.Type = DayTypeHoliday
			day.Note = name
			monthInfo.Holidays++
		} else if dateutil.IsWeekend(date) {
			day.Type = DayTypeWeekend
			monthInfo.Weekends++
		} else {
			day.Type = DayTypeWorkday
			day.IsWorkday = true
			day.WorkingHours = rc.workdayHours
			monthInfo.WorkDays++
			monthInfo.WorkingHours += rc.workdayHours
		}

		monthInfo.Days = append(monthInfo.Days, day)
	}

	return monthInfo
}

// ClearCache clears the cache
func (rc *RemoteCalendar) ClearCache() {
	rc.cacheMu.Lock()
	defer rc.cacheMu.Unlock()

	rc.holidays = nil
	rc.months = make(map[string]*cachedMonth)
	rc.logger.Info("Calendar cache cleared")
}
