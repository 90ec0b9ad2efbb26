// Package datepicker implements the multi-date selection calendar: a set of
// selected calendar dates, one visible month and the constraints that decide
// which days may be picked.
//
// A Selector is not safe for concurrent use. Every operation runs to
// completion and re-renders synchronously before returning; hosts with more
// than one goroutine must serialise calls per instance.
package datepicker

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

// Selector owns the selection set and the visible month
type Selector struct {
	id       string
	cons     constraints
	handlers Handlers
	locale   *Locale

	selected map[string]struct{}
	year     int
	month    time.Month

	now      func() time.Time
	renderer Renderer
	logger   *zap.Logger
}

// Option customises a Selector at construction
type Option func(*Selector)

// WithClock overrides the source of "today"
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		s.now = now
	}
}

// WithRenderer attaches the host renderer that receives every redraw
func WithRenderer(r Renderer) Option {
	return func(s *Selector) {
		s.renderer = r
	}
}

// New creates a Selector rendering into the container id, showing the
// current month and an empty selection.
// It fails only when MinDate or MaxDate cannot be used.
func New(id string, cfg Config, logger *zap.Logger, opts ...Option) (*Selector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cons, err := newConstraints(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid selector config: %w", err)
	}

	s := &Selector{
		id:       id,
		cons:     cons,
		handlers: cfg.Handlers,
		locale:   LookupLocale(cfg.Locale),
		selected: make(map[string]struct{}),
		now:      time.Now,
		logger:   logger.With(zap.String("selector", id)),
	}
	for _, opt := range opts {
		opt(s)
	}

	today := s.now()
	s.year, s.month = today.Year(), today.Month()
	s.render()

	return s, nil
}

// ID returns the host container identifier
func (s *Selector) ID() string {
	return s.id
}

// VisibleMonth returns the month currently shown
func (s *Selector) VisibleMonth() (int, time.Month) {
	return s.year, s.month
}

// Len returns the number of selected dates
func (s *Selector) Len() int {
	return len(s.selected)
}

// IsSelected reports whether date is in the selection
func (s *Selector) IsSelected(date string) bool {
	_, ok := s.selected[date]
	return ok
}

// IsDateDisabled reports whether the calendar day of date may not be picked
// by the user. Holidays count only when DisableHolidays is set.
func (s *Selector) IsDateDisabled(date time.Time) bool {
	return s.cons.isDisabled(dateutil.CalendarDay(date))
}

// IsHoliday reports whether the calendar day of date is a configured holiday
func (s *Selector) IsHoliday(date time.Time) bool {
	return s.cons.isHoliday(dateutil.CalendarDay(date))
}

// ToggleDate flips the membership of date.
// Malformed or disabled dates are ignored.
func (s *Selector) ToggleDate(date string) {
	day, ok := s.parse(date, "toggle")
	if !ok {
		return
	}
	if s.cons.isDisabled(day) {
		s.logger.Debug("Toggle on disabled date ignored", zap.String("date", date))
		return
	}

	key := dateutil.FormatISO(day)
	if _, selected := s.selected[key]; selected {
		delete(s.selected, key)
		if s.handlers.OnDateDeselect != nil {
			s.handlers.OnDateDeselect(key)
		}
	} else {
		s.selected[key] = struct{}{}
		if s.handlers.OnDateSelect != nil {
			s.handlers.OnDateSelect(key)
		}
	}

	s.render()
	s.notifyChange()
}

// ClearAllDates empties the selection
func (s *Selector) ClearAllDates() {
	s.selected = make(map[string]struct{})
	s.render()
	s.notifyChange()
}

// SelectWeekdaysInMonth adds every enabled Monday-Friday of the visible month.
// OnChange fires once, after all additions.
func (s *Selector) SelectWeekdaysInMonth() {
	last := dateutil.DaysInMonth(s.year, s.month)
	added := 0
	for d := 1; d <= last; d++ {
		day := dateutil.Date(s.year, s.month, d)
		if !dateutil.IsWeekday(day) || s.cons.isDisabled(day) {
			continue
		}
		key := dateutil.FormatISO(day)
		if _, ok := s.selected[key]; !ok {
			s.selected[key] = struct{}{}
			added++
		}
	}

	s.logger.Debug("Selected weekdays in month",
		zap.Int("year", s.year),
		zap.Int("month", int(s.month)),
		zap.Int("added", added))

	s.render()
	s.notifyChange()
}

// PrevMonth shows the previous month
func (s *Selector) PrevMonth() {
	s.year, s.month = dateutil.AddMonths(s.year, s.month, -1)
	s.render()
}

// NextMonth shows the next month
func (s *Selector) NextMonth() {
	s.year, s.month = dateutil.AddMonths(s.year, s.month, 1)
	s.render()
}

// GoToMonth shows (year, month). Out-of-range months are normalised,
// so month 13 of 2024 is January 2025.
func (s *Selector) GoToMonth(year int, month time.Month) {
	first := dateutil.Date(year, month, 1)
	s.year, s.month = first.Year(), first.Month()
	s.render()
}

// GoToToday shows the month containing today
func (s *Selector) GoToToday() {
	today := s.now()
	s.year, s.month = today.Year(), today.Month()
	s.render()
}

// GetSelectedDates returns the selection sorted ascending
func (s *Selector) GetSelectedDates() []string {
	dates := make([]string, 0, len(s.selected))
	for d := range s.selected {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// SetSelectedDates replaces the selection wholesale without firing callbacks.
// Entries that are not calendar dates are dropped and returned.
func (s *Selector) SetSelectedDates(dates []string) []string {
	selected := make(map[string]struct{}, len(dates))
	var rejected []string
	for _, d := range dates {
		day, ok := s.parse(d, "set")
		if !ok {
			rejected = append(rejected, d)
			continue
		}
		selected[dateutil.FormatISO(day)] = struct{}{}
	}

	s.selected = selected
	s.render()
	return rejected
}

// AddDate inserts date without the disabled check and without callbacks.
// It reports whether date was a calendar date.
func (s *Selector) AddDate(date string) bool {
	day, ok := s.parse(date, "add")
	if !ok {
		return false
	}
	s.selected[dateutil.FormatISO(day)] = struct{}{}
	s.render()
	return true
}

// RemoveDate deletes date without callbacks.
// It reports whether date was a calendar date.
func (s *Selector) RemoveDate(date string) bool {
	day, ok := s.parse(date, "remove")
	if !ok {
		return false
	}
	delete(s.selected, dateutil.FormatISO(day))
	s.render()
	return true
}

// View builds the declarative model of the current state
func (s *Selector) View() View {
	return buildView(s)
}

func (s *Selector) parse(date, op string) (time.Time, bool) {
	day, err := dateutil.ParseISO(date)
	if err != nil {
		s.logger.Debug("Ignoring malformed date",
			zap.String("op", op),
			zap.String("date", date),
			zap.Error(err))
		return time.Time{}, false
	}
	return day, true
}

func (s *Selector) render() {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Render(s.View()); err != nil {
		s.logger.Warn("Failed to render selector", zap.Error(err))
	}
}

func (s *Selector) notifyChange() {
	if s.handlers.OnChange != nil {
		s.handlers.OnChange(s.GetSelectedDates())
	}
}
