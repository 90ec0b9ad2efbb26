// Package timesheet builds the month view of registered hours. Entries are
// grouped per day and every day is graded by how much was logged on it.
package timesheet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/hoursapi"
	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/pkg/dateutil"
)

// Level grades the hours logged on one day
type Level int

const (
	LevelEmpty Level = iota
	LevelFew
	LevelPartial
	LevelComplete
)

var (
	// CompleteHours is the total that makes a full day
	CompleteHours = decimal.NewFromInt(8)
	// PartialHours is the total that makes at least half a day
	PartialHours = decimal.NewFromInt(4)
)

var levelNames = map[Level]string{
	LevelEmpty:    "empty",
	LevelFew:      "few",
	LevelPartial:  "partial",
	LevelComplete: "complete",
}

var levelClasses = map[Level]string{
	LevelFew:      "few-hours-day",
	LevelPartial:  "partial-day",
	LevelComplete: "complete-day",
}

// LevelFor grades a daily total: 8h or more is complete, 4h or more is
// partial, anything above zero is few.
func LevelFor(hours decimal.Decimal) Level {
	switch {
	case hours.GreaterThanOrEqual(CompleteHours):
		return LevelComplete
	case hours.GreaterThanOrEqual(PartialHours):
		return LevelPartial
	case hours.IsPositive():
		return LevelFew
	default:
		return LevelEmpty
	}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Class returns the CSS class of the level, "" for empty days
func (l Level) Class() string {
	return levelClasses[l]
}

// Day is every entry registered on one date
type Day struct {
	Date    string               `json:"date"`
	Total   decimal.Decimal      `json:"total"`
	Level   Level                `json:"level"`
	Entries []hoursapi.HourEntry `json:"entries"`
}

// GroupByDate sums entries per date. Entries keep the order they came in.
func GroupByDate(entries []hoursapi.HourEntry) map[string]*Day {
	days := make(map[string]*Day)
	for _, e := range entries {
		day, ok := days[e.Date]
		if !ok {
			day = &Day{Date: e.Date, Total: decimal.Zero}
			days[e.Date] = day
		}
		day.Total = day.Total.Add(e.Hours)
		day.Entries = append(day.Entries, e)
	}
	for _, day := range days {
		day.Level = LevelFor(day.Total)
	}
	return days
}

// Cell is one slot of the hours month grid
type Cell struct {
	Date    string          `json:"date"`
	Day     int             `json:"day"`
	InMonth bool            `json:"in_month"`
	Today   bool            `json:"today"`
	Weekend bool            `json:"weekend"`
	Holiday bool            `json:"holiday"`
	Hours   decimal.Decimal `json:"hours"`
	Level   Level           `json:"level"`
	Entries int             `json:"entries"`
	Title   string          `json:"title"`
}

// Classes returns the CSS classes of the cell
func (c Cell) Classes() string {
	classes := []string{"calendar-day"}
	if !c.InMonth {
		classes = append(classes, "other-month")
	}
	if c.Today {
		classes = append(classes, "today")
	}
	if c.Weekend {
		classes = append(classes, "weekend")
	}
	if c.Holiday {
		classes = append(classes, "holiday")
	}
	if class := c.Level.Class(); class != "" {
		classes = append(classes, class)
	}
	return strings.Join(classes, " ")
}

// View is the hours month grid: the same 42 days the selector shows.
// Totals only count days of the month itself.
type View struct {
	Year       int                        `json:"year"`
	Month      time.Month                 `json:"month"`
	Title      string                     `json:"title"`
	DayNames   [7]string                  `json:"day_names"`
	Cells      [datepicker.GridCells]Cell `json:"cells"`
	TotalHours decimal.Decimal            `json:"total_hours"`
	DaysWorked int                        `json:"days_worked"`
	Footer     string                     `json:"footer"`
}

// Weeks splits the grid into its six rows
func (v View) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(v.Cells)/7)
	for i := 0; i < len(v.Cells); i += 7 {
		weeks = append(weeks, v.Cells[i:i+7])
	}
	return weeks
}

// Source lists registered hours; *hoursapi.Client implements it
type Source interface {
	ListHours(ctx context.Context, filter hoursapi.Filter) ([]hoursapi.HourEntry, error)
}

// Option configures a Builder
type Option func(*Builder)

// WithClock sets the source of "today"
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// Builder assembles month views from the hours backend and a holiday calendar
type Builder struct {
	src    Source
	cal    calendar.Calendar
	locale *datepicker.Locale
	now    func() time.Time
	logger *zap.Logger
}

// NewBuilder creates a Builder. cal may be nil, in which case no holidays are marked.
func NewBuilder(src Source, cal calendar.Calendar, locale string, logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		src:    src,
		cal:    cal,
		locale: datepicker.LookupLocale(locale),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Locale returns the locale labels are rendered in
func (b *Builder) Locale() *datepicker.Locale {
	return b.locale
}

// Month builds the view of (year, month). Out-of-range months are normalized.
// Calendar failures degrade to no holidays; backend failures are returned.
func (b *Builder) Month(ctx context.Context, year int, month time.Month) (*View, error) {
	start := time.Now()
	year, month = dateutil.AddMonths(year, month, 0)
	grid := datepicker.GridDates(year, month)
	first, last := grid[0], grid[len(grid)-1]

	entries, err := b.src.ListHours(ctx, hoursapi.Filter{
		From: dateutil.FormatISO(first),
		To:   dateutil.FormatISO(last),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list hours for %d-%02d: %w", year, month, err)
	}
	days := GroupByDate(entries)
	holidays := b.holidays(ctx, first, last)
	today := b.now()

	v := &View{
		Year:       year,
		Month:      month,
		Title:      b.locale.MonthTitle(year, month),
		DayNames:   b.locale.DayNames,
		TotalHours: decimal.Zero,
	}

	for i, date := range grid {
		iso := dateutil.FormatISO(date)
		_, holiday := holidays[iso]
		weekend := dateutil.IsWeekend(date)

		cell := Cell{
			Date:    iso,
			Day:     date.Day(),
			InMonth: date.Month() == month,
			Today:   dateutil.IsSameDay(date, today),
			Weekend: weekend,
			Holiday: holiday,
			Hours:   decimal.Zero,
			Title:   b.locale.DateTitle(date, holiday, weekend),
		}
		if day, ok := days[iso]; ok {
			cell.Hours = day.Total
			cell.Level = day.Level
			cell.Entries = len(day.Entries)
			cell.Title += " · " + b.locale.HoursText(hoursfield.FormatDecimal(day.Total))

			if cell.InMonth {
				v.TotalHours = v.TotalHours.Add(day.Total)
				if day.Total.IsPositive() {
					v.DaysWorked++
				}
			}
		}
		v.Cells[i] = cell
	}
	v.Footer = b.locale.TotalText(hoursfield.FormatDecimal(v.TotalHours), v.DaysWorked)

	b.logger.Debug("Hours month built",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("entries", len(entries)),
		zap.String("total", v.TotalHours.String()),
		zap.Duration("duration", time.Since(start)))

	return v, nil
}

// Day returns the entries registered on date (YYYY-MM-DD)
func (b *Builder) Day(ctx context.Context, date string) (*Day, error) {
	if _, err := dateutil.ParseISO(date); err != nil {
		return nil, err
	}

	entries, err := b.src.ListHours(ctx, hoursapi.Filter{From: date, To: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list hours for %s: %w", date, err)
	}

	if day, ok := GroupByDate(entries)[date]; ok {
		return day, nil
	}
	return &Day{Date: date, Total: decimal.Zero, Entries: []hoursapi.HourEntry{}}, nil
}

func (b *Builder) holidays(ctx context.Context, from, to time.Time) map[string]struct{} {
	set := make(map[string]struct{})
	if b.cal == nil {
		return set
	}

	holidays, err := calendar.Holidays(ctx, b.cal, from, to)
	if err != nil {
		b.logger.Warn("Failed to load holidays, continuing without them", zap.Error(err))
		return set
	}
	for _, h := range holidays {
		set[h] = struct{}{}
	}
	return set
}

// Text draws the view for terminals, one column per weekday. Each cell
// shows the day and its hours; '!' marks holidays and '.' days outside the
// month.
func Text(v *View) string {
	var b strings.Builder

	const cellWidth = 9
	header := make([]string, 0, len(v.DayNames))
	for _, name := range v.DayNames {
		header = append(header, fmt.Sprintf("%*s", cellWidth, name))
	}
	row := strings.Join(header, "")

	title := v.Title
	if pad := (len([]rune(row)) - len([]rune(title))) / 2; pad > 0 {
		title = strings.Repeat(" ", pad) + title
	}
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(row)
	b.WriteByte('\n')

	for _, week := range v.Weeks() {
		for _, c := range week {
			hours := ""
			if c.Hours.IsPositive() {
				hours = hoursfield.FormatDecimal(c.Hours)
			}
			fmt.Fprintf(&b, " %2d%c%5s", c.Day, textMarker(c), hours)
		}
		b.WriteByte('\n')
	}
	b.WriteString(v.Footer)
	b.WriteByte('\n')

	return b.String()
}

func textMarker(c Cell) byte {
	switch {
	case !c.InMonth:
		return '.'
	case c.Holiday:
		return '!'
	default:
		return ' '
	}
}

// DayText lists the entries of one day with their total
func DayText(day *Day, locale *datepicker.Locale) string {
	var b strings.Builder

	if len(day.Entries) == 0 {
		b.WriteString(locale.NoEntriesLabel)
		b.WriteByte('\n')
		return b.String()
	}

	entries := append([]hoursapi.HourEntry(nil), day.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ProjectName < entries[j].ProjectName
	})
	for _, e := range entries {
		fmt.Fprintf(&b, "%6d  %-20s %5sh  %-8s %s\n",
			e.ID, e.ProjectName, hoursfield.FormatDecimal(e.Hours), e.TaskType, e.Description)
	}
	b.WriteString(locale.HoursText(hoursfield.FormatDecimal(day.Total)))
	b.WriteByte('\n')

	return b.String()
}
