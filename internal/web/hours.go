package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/internal/timesheet"
	"github.com/username/hours-tracker/pkg/dateutil"
)

var hoursTemplate = template.Must(template.ParseFS(templateFS, "templates/hours.html"))

func monthPath(year int, month time.Month) string {
	return fmt.Sprintf("/hours/%d/%d", year, int(month))
}

// HoursToday redirects to the hours view of the current month
func (a *App) HoursToday(w http.ResponseWriter, r *http.Request) {
	now := a.now()
	http.Redirect(w, r, monthPath(now.Year(), now.Month()), http.StatusSeeOther)
}

// HoursMonth shows the hours registered in a month, graded per day
func (a *App) HoursMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	view, err := a.opts.Timesheet.Month(r.Context(), year, time.Month(month))
	if err != nil {
		a.logger.Error("Failed to build hours month", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load hours", err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}

	prevYear, prevMonth := dateutil.AddMonths(view.Year, view.Month, -1)
	nextYear, nextMonth := dateutil.AddMonths(view.Year, view.Month, 1)
	data := struct {
		View       *timesheet.View
		Prev, Next string
	}{view, monthPath(prevYear, prevMonth), monthPath(nextYear, nextMonth)}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := hoursTemplate.ExecuteTemplate(w, "hours", data); err != nil {
		a.logger.Error("Failed to render hours month", zap.Error(err))
	}
}

// HoursDay shows the entries of one day
func (a *App) HoursDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	parsed, err := dateutil.ParseISO(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	day, err := a.opts.Timesheet.Day(r.Context(), date)
	if err != nil {
		a.logger.Error("Failed to load hours of day", zap.String("date", date), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load hours", err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, day)
		return
	}

	locale := a.opts.Timesheet.Locale()
	data := struct {
		Day   *timesheet.Day
		Title string
		Total string
		Empty string
		Back  string
	}{
		Day:   day,
		Title: locale.DateTitle(parsed, false, dateutil.IsWeekend(parsed)),
		Total: locale.HoursText(hoursfield.FormatDecimal(day.Total)),
		Empty: locale.NoEntriesLabel,
		Back:  monthPath(parsed.Year(), parsed.Month()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := hoursTemplate.ExecuteTemplate(w, "day", data); err != nil {
		a.logger.Error("Failed to render hours day", zap.Error(err))
	}
}
