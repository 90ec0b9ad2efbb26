package datepicker

import (
	"strings"
	"time"

	"github.com/username/hours-tracker/pkg/dateutil"
)

const (
	// GridCells is the fixed size of a month grid: six weeks
	GridCells = 42
	weekDays  = 7
)

// Cell is one slot of the month grid
type Cell struct {
	Date     string
	Day      int
	InMonth  bool
	Today    bool
	Selected bool
	Disabled bool
	Weekend  bool
	Holiday  bool
	Title    string
}

// Classes returns the CSS classes of the cell in the widget's stylesheet
func (c Cell) Classes() string {
	classes := []string{"calendar-day"}
	if !c.InMonth {
		classes = append(classes, "other-month")
	}
	if c.Today {
		classes = append(classes, "today")
	}
	if c.Selected {
		classes = append(classes, "selected")
	}
	if c.Disabled {
		classes = append(classes, "disabled")
	}
	if c.Weekend {
		classes = append(classes, "weekend")
	}
	if c.Holiday {
		classes = append(classes, "holiday")
	}
	return strings.Join(classes, " ")
}

// View is the declarative model of the whole widget subtree.
// Renderers turn it into markup or text; it holds no references to the Selector.
type View struct {
	ContainerID   string
	Year          int
	Month         time.Month
	Title         string
	DayNames      [7]string
	Cells         [GridCells]Cell
	SelectedCount int
	SelectedText  string
	ClearLabel    string
	WeekdaysLabel string
	TodayLabel    string
}

// Weeks splits the grid into its six rows
func (v View) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, GridCells/weekDays)
	for i := 0; i < GridCells; i += weekDays {
		weeks = append(weeks, v.Cells[i:i+weekDays])
	}
	return weeks
}

// GridDates returns the 42 consecutive days shown for (year, month),
// starting on the Sunday on or before the 1st.
func GridDates(year int, month time.Month) [GridCells]time.Time {
	var dates [GridCells]time.Time
	start := dateutil.GridStart(year, month)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func buildView(s *Selector) View {
	today := dateutil.CalendarDay(s.now())
	v := View{
		ContainerID:   s.id,
		Year:          s.year,
		Month:         s.month,
		Title:         s.locale.MonthTitle(s.year, s.month),
		DayNames:      s.locale.DayNames,
		SelectedCount: len(s.selected),
		SelectedText:  s.locale.SelectedText(len(s.selected)),
		ClearLabel:    s.locale.ClearLabel,
		WeekdaysLabel: s.locale.WeekdaysLabel,
		TodayLabel:    s.locale.TodayLabel,
	}

	for i, day := range GridDates(s.year, s.month) {
		iso := dateutil.FormatISO(day)
		_, selected := s.selected[iso]
		weekend := dateutil.IsWeekend(day)
		holiday := s.cons.isHoliday(day)

		v.Cells[i] = Cell{
			Date:     iso,
			Day:      day.Day(),
			InMonth:  day.Month() == s.month,
			Today:    day.Equal(today),
			Selected: selected,
			Disabled: s.cons.isDisabled(day),
			Weekend:  weekend,
			Holiday:  holiday,
			Title:    s.locale.DateTitle(day, holiday, weekend),
		}
	}

	return v
}
