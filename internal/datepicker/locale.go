package datepicker

import (
	"fmt"
	"time"
)

// DefaultLocale is used when Config.Locale is empty or unknown
const DefaultLocale = "es-ES"

// Locale holds the human-readable strings of the view.
// Only titles and labels depend on it; dates on the wire stay ISO.
type Locale struct {
	Tag           string
	MonthNames    [12]string
	DayNames      [7]string // short headers, Sunday first
	HolidaySuffix string
	WeekendSuffix string
	SelectedLabel string // fmt verb receives the count
	ClearLabel    string
	WeekdaysLabel string
	TodayLabel    string

	// Hours month view
	HoursLabel     string // fmt verb receives the formatted hours
	TotalLabel     string // hours, then days with hours
	NoEntriesLabel string

	longDays   [7]string
	longMonths [12]string
	longDate   func(l *Locale, t time.Time) string
}

var locales = map[string]*Locale{
	"es-ES": {
		Tag: "es-ES",
		MonthNames: [12]string{
			"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
			"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
		},
		DayNames:      [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"},
		HolidaySuffix: " (Feriado)",
		WeekendSuffix: " (Fin de semana)",
		SelectedLabel: "%d fechas seleccionadas",
		ClearLabel:    "Limpiar Todo",
		WeekdaysLabel: "Días Laborales",
		TodayLabel:    "Hoy",

		HoursLabel:     "%s horas trabajadas",
		TotalLabel:     "Total: %s horas en %d días",
		NoEntriesLabel: "No hay registros de horas para este día.",

		longDays: [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
		longMonths: [12]string{
			"enero", "febrero", "marzo", "abril", "mayo", "junio",
			"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
		},
		// lunes, 1 de enero de 2024
		longDate: func(l *Locale, t time.Time) string {
			return fmt.Sprintf("%s, %d de %s de %d",
				l.longDays[t.Weekday()], t.Day(), l.longMonths[t.Month()-1], t.Year())
		},
	},
	"en-US": {
		Tag: "en-US",
		MonthNames: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		DayNames:      [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		HolidaySuffix: " (Holiday)",
		WeekendSuffix: " (Weekend)",
		SelectedLabel: "%d dates selected",
		ClearLabel:    "Clear All",
		WeekdaysLabel: "Weekdays",
		TodayLabel:    "Today",

		HoursLabel:     "%s hours worked",
		TotalLabel:     "Total: %s hours over %d days",
		NoEntriesLabel: "No hours logged on this day.",

		// Monday, January 1, 2024
		longDate: func(l *Locale, t time.Time) string {
			return t.Format("Monday, January 2, 2006")
		},
	},
}

// LookupLocale returns the locale for tag, falling back to DefaultLocale
func LookupLocale(tag string) *Locale {
	if l, ok := locales[tag]; ok {
		return l
	}
	return locales[DefaultLocale]
}

// MonthTitle formats the header of a month grid, e.g. "Enero 2024"
func (l *Locale) MonthTitle(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", l.MonthNames[month-1], year)
}

// DateTitle is the tooltip of one grid cell
func (l *Locale) DateTitle(day time.Time, holiday, weekend bool) string {
	title := l.longDate(l, day)
	if holiday {
		title += l.HolidaySuffix
	}
	if weekend {
		title += l.WeekendSuffix
	}
	return title
}

// HoursText is the tooltip suffix of a day with logged hours
func (l *Locale) HoursText(hours string) string {
	return fmt.Sprintf(l.HoursLabel, hours)
}

// TotalText renders the footer of the hours month view
func (l *Locale) TotalText(hours string, days int) string {
	return fmt.Sprintf(l.TotalLabel, hours, days)
}

// SelectedText renders the selected-count footer
func (l *Locale) SelectedText(n int) string {
	return fmt.Sprintf(l.SelectedLabel, n)
}
