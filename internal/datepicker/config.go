package datepicker

import (
	"fmt"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

// Handlers are the outbound callbacks of a Selector.
// Every field is optional; a nil func is simply not called.
type Handlers struct {
	// OnDateSelect fires once per date entering the selection through ToggleDate
	OnDateSelect func(date string)
	// OnDateDeselect fires once per date leaving the selection through ToggleDate
	OnDateDeselect func(date string)
	// OnChange receives the full selection, sorted ascending, after a user-driven mutation
	OnChange func(dates []string)
}

// Config is the construction-time configuration of a Selector.
// All dates are ISO YYYY-MM-DD strings.
type Config struct {
	MinDate         string
	MaxDate         string
	DisabledDates   []string
	DisableWeekends bool
	// DisableHolidays makes holidays behave like DisabledDates. Off by default:
	// holidays are only flagged in the view.
	DisableHolidays bool
	Holidays        []string
	Locale          string
	Handlers        Handlers
}

// constraints is the immutable snapshot consulted by IsDateDisabled
type constraints struct {
	min             time.Time
	hasMin          bool
	max             time.Time
	hasMax          bool
	disabled        map[string]struct{}
	holidays        map[string]struct{}
	disableWeekends bool
	disableHolidays bool
}

func newConstraints(cfg Config, logger *zap.Logger) (constraints, error) {
	c := constraints{
		disableWeekends: cfg.DisableWeekends,
		disableHolidays: cfg.DisableHolidays,
	}

	if cfg.MinDate != "" {
		t, err := dateutil.ParseISO(cfg.MinDate)
		if err != nil {
			return constraints{}, fmt.Errorf("min date: %w", err)
		}
		c.min, c.hasMin = t, true
	}

	if cfg.MaxDate != "" {
		t, err := dateutil.ParseISO(cfg.MaxDate)
		if err != nil {
			return constraints{}, fmt.Errorf("max date: %w", err)
		}
		c.max, c.hasMax = t, true
	}

	if c.hasMin && c.hasMax && c.max.Before(c.min) {
		return constraints{}, fmt.Errorf("max date %s is before min date %s", cfg.MaxDate, cfg.MinDate)
	}

	c.disabled = dateSet(cfg.DisabledDates, "disabled", logger)
	c.holidays = dateSet(cfg.Holidays, "holiday", logger)

	return c, nil
}

// dateSet keeps the well-formed entries of dates; the rest are dropped
func dateSet(dates []string, kind string, logger *zap.Logger) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		t, err := dateutil.ParseISO(d)
		if err != nil {
			logger.Debug("Ignoring malformed date in config",
				zap.String("kind", kind),
				zap.String("date", d),
				zap.Error(err))
			continue
		}
		set[dateutil.FormatISO(t)] = struct{}{}
	}
	return set
}

func (c constraints) isHoliday(day time.Time) bool {
	_, ok := c.holidays[dateutil.FormatISO(day)]
	return ok
}

func (c constraints) isDisabled(day time.Time) bool {
	if c.hasMin && day.Before(c.min) {
		return true
	}
	if c.hasMax && day.After(c.max) {
		return true
	}
	if c.disableWeekends && dateutil.IsWeekend(day) {
		return true
	}
	if _, ok := c.disabled[dateutil.FormatISO(day)]; ok {
		return true
	}
	return c.disableHolidays && c.isHoliday(day)
}
