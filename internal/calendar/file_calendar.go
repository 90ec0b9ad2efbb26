package calendar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

// FileCalendar implements Calendar interface using a local text file
type FileCalendar struct {
	filePath string
	logger   *zap.Logger

	mu   sync.RWMutex
	data map[string]*MonthInfo // key: "YYYY-MM"
}

// NewFileCalendar creates a new FileCalendar instance
func NewFileCalendar(filePath string, logger *zap.Logger) *FileCalendar {
	return &FileCalendar{
		filePath: filePath,
		logger:   logger,
		data:     make(map[string]*MonthInfo),
	}
}

// Load (re)reads calendar data from file
func (fc *FileCalendar) Load() error {
	file, err := os.Open(fc.filePath)
	if err != nil {
		return fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer file.Close()

	data, err := fc.parse(file)
	if err != nil {
		return err
	}

	fc.mu.Lock()
	fc.data = data
	fc.mu.Unlock()

	fc.logger.Info("Calendar file loaded",
		zap.String("file", fc.filePath),
		zap.Int("months", len(data)))

	return nil
}

// parse reads lines of the form
//
//	YYYY-MM-DD type working_hours [note]
//	2024-01-01 holiday 0 Año Nuevo
//
// Blank lines and lines starting with # are skipped; malformed lines are logged and skipped.
func (fc *FileCalendar) parse(r io.Reader) (map[string]*MonthInfo, error) {
	data := make(map[string]*MonthInfo)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 3 {
			fc.logger.Warn("Invalid line format", zap.Int("line", lineNo), zap.String("text", line))
			continue
		}

		date, err := dateutil.ParseISO(parts[0])
		if err != nil {
			fc.logger.Warn("Failed to parse date", zap.Int("line", lineNo), zap.Error(err))
			continue
		}

		dayType, err := ParseDayType(parts[1])
		if err != nil {
			fc.logger.Warn("Unknown day type", zap.Int("line", lineNo), zap.String("type", parts[1]))
			continue
		}

		hours, err := strconv.Atoi(parts[2])
		if err != nil || hours < 0 {
			fc.logger.Warn("Failed to parse hours", zap.Int("line", lineNo), zap.String("hours", parts[2]))
			continue
		}

		note := ""
		if len(parts) == 4 {
			note = strings.TrimSpace(parts[3])
		}

		key := monthKey(date.Year(), date.Month())
		month, ok := data[key]
		if !ok {
			month = &MonthInfo{Year: date.Year(), Month: date.Month()}
			data[key] = month
		}

		isWorkday := dayType == DayTypeWorkday || dayType == DayTypeShortened
		month.Days = append(month.Days, DayInfo{
			Date:         date,
			Type:         dayType,
			WorkingHours: hours,
			IsWorkday:    isWorkday,
			Note:         note,
		})

		switch {
		case isWorkday:
			month.WorkDays++
			month.WorkingHours += hours
		case dayType == DayTypeWeekend:
			month.Weekends++
		case dayType == DayTypeHoliday:
			month.Holidays++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading calendar file: %w", err)
	}

	return data, nil
}

// IsWorkday checks if the given date is a working day
func (fc *FileCalendar) IsWorkday(ctx context.Context, date time.Time) (bool, int, error) {
	dayInfo, err := fc.GetDayInfo(ctx, date)
	if err != nil {
		return false, 0, err
	}

	return dayInfo.IsWorkday, dayInfo.WorkingHours, nil
}

// GetMonthInfo returns calendar info for the entire month
func (fc *FileCalendar) GetMonthInfo(_ context.Context, year int, month time.Month) (*MonthInfo, error) {
	key := monthKey(year, month)

	fc.mu.RLock()
	monthInfo, ok := fc.data[key]
	fc.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("month not found in calendar: %s", key)
	}

	return monthInfo, nil
}

// GetDayInfo returns detailed info for a specific day
func (fc *FileCalendar) GetDayInfo(ctx context.Context, date time.Time) (*DayInfo, error) {
	monthInfo, err := fc.GetMonthInfo(ctx, date.Year(), date.Month())
	if err != nil {
		return nil, err
	}

	return findDay(monthInfo, date)
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, month)
}
