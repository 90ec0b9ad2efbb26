package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/datepicker"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type ctxKey struct{}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StateResponse is the JSON view of a session
type StateResponse struct {
	ID         string   `json:"id"`
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	Dates      []string `json:"dates"`
	LastChange []string `json:"last_change"`
	Rejected   []string `json:"rejected,omitempty"`
	Valid      *bool    `json:"valid,omitempty"`
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status         string                  `json:"status"`
	Sessions       int                     `json:"sessions"`
	HolidayRefresh *HolidayRefreshResponse `json:"holiday_refresh,omitempty"`
}

// HolidayRefreshResponse reports the scheduled holiday refresh
type HolidayRefreshResponse struct {
	Schedule  string     `json:"schedule"`
	Running   bool       `json:"running"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   time.Time  `json:"next_run"`
	LastError string     `json:"last_error,omitempty"`
}

// EventRequest carries the arguments of a selector event. JSON clients send
// it as the body; forms send the same names as fields.
type EventRequest struct {
	Date  string `json:"date"`
	Year  *int   `json:"year,omitempty"`
	Month *int   `json:"month,omitempty"`
}

// SetDatesRequest is the body of PUT /calendars/{id}/dates
type SetDatesRequest struct {
	Dates []string `json:"dates"`
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// Health reports liveness, the number of sessions and the holiday refresh.
// A failed last refresh reports "degraded" but still answers 200.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Sessions: a.Len()}

	if a.opts.Refresher != nil {
		st := a.opts.Refresher.Status()
		refresh := &HolidayRefreshResponse{
			Schedule: st.Schedule,
			Running:  st.Running,
			NextRun:  st.NextRun,
		}
		if !st.LastRun.IsZero() {
			refresh.LastRun = &st.LastRun
		}
		if st.LastErr != nil {
			refresh.LastError = st.LastErr.Error()
			resp.Status = "degraded"
		}
		resp.HolidayRefresh = refresh
	}

	writeJSON(w, http.StatusOK, resp)
}

// NewCalendar creates a session and redirects the browser to it
func (a *App) NewCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := a.CreateSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create calendar", err)
		return
	}
	http.Redirect(w, r, "/calendars/"+id, http.StatusSeeOther)
}

// CreateCalendar creates a session for JSON clients
func (a *App) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := a.CreateSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create calendar", err)
		return
	}
	sess, _ := a.session(id)
	sess.mu.Lock()
	resp := state(sess)
	sess.mu.Unlock()
	writeJSON(w, http.StatusCreated, resp)
}

// ShowCalendar renders the host page around the selector markup
func (a *App) ShowCalendar(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	sess.mu.Lock()
	data := struct {
		ID        string
		Widget    template.HTML
		Dates     string
		CSRFField template.HTML
	}{
		ID:        sess.id,
		Widget:    sess.renderer.HTML(),
		Dates:     strings.Join(sess.selector.GetSelectedDates(), ","),
		CSRFField: csrf.TemplateField(r),
	}
	sess.mu.Unlock()

	if token := csrf.Token(r); token != "" {
		w.Header().Set("X-CSRF-Token", token)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.ExecuteTemplate(w, "page", data); err != nil {
		a.logger.Error("Failed to render page", zap.String("session", sess.id), zap.Error(err))
	}
}

// CloseCalendar deletes the session and returns its final selection
func (a *App) CloseCalendar(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	dates, ok := a.DeleteSession(sess.id)
	if !ok {
		writeError(w, http.StatusNotFound, "calendar not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sess.id, "dates": dates})
}

// =============================================================================
// SELECTOR EVENTS
// =============================================================================

// Toggle flips the posted date
func (a *App) Toggle(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	a.apply(w, r, func(sel *datepicker.Selector, resp *StateResponse) {
		sel.ToggleDate(ev.Date)
	})
}

// Add selects the posted date
func (a *App) Add(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	a.apply(w, r, func(sel *datepicker.Selector, resp *StateResponse) {
		valid := sel.AddDate(ev.Date)
		resp.Valid = &valid
	})
}

// Remove deselects the posted date
func (a *App) Remove(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	a.apply(w, r, func(sel *datepicker.Selector, resp *StateResponse) {
		valid := sel.RemoveDate(ev.Date)
		resp.Valid = &valid
	})
}

// Clear empties the selection
func (a *App) Clear(w http.ResponseWriter, r *http.Request) {
	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.ClearAllDates()
	})
}

// Weekdays selects every enabled weekday of the visible month
func (a *App) Weekdays(w http.ResponseWriter, r *http.Request) {
	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.SelectWeekdaysInMonth()
	})
}

// Prev shows the previous month
func (a *App) Prev(w http.ResponseWriter, r *http.Request) {
	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.PrevMonth()
	})
}

// Next shows the next month
func (a *App) Next(w http.ResponseWriter, r *http.Request) {
	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.NextMonth()
	})
}

// Today shows the current month
func (a *App) Today(w http.ResponseWriter, r *http.Request) {
	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.GoToToday()
	})
}

// Month jumps to the posted year and month
func (a *App) Month(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	if ev.Year == nil || ev.Month == nil {
		writeError(w, http.StatusBadRequest, "year and month are required", nil)
		return
	}

	a.apply(w, r, func(sel *datepicker.Selector, _ *StateResponse) {
		sel.GoToMonth(*ev.Year, time.Month(*ev.Month))
	})
}

// GetDates returns the selection
func (a *App) GetDates(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.mu.Lock()
	resp := state(sess)
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// SetDates replaces the selection without firing change handlers
func (a *App) SetDates(w http.ResponseWriter, r *http.Request) {
	var req SetDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sess := sessionFrom(r)
	var resp StateResponse
	sess.with(a.now(), func(sel *datepicker.Selector) {
		rejected := sel.SetSelectedDates(req.Dates)
		resp = state(sess)
		resp.Rejected = rejected
	})

	if len(resp.Rejected) > 0 {
		a.logger.Debug("Dates rejected",
			zap.String("session", sess.id),
			zap.Strings("rejected", resp.Rejected))
	}
	writeJSON(w, http.StatusOK, resp)
}

// apply runs op under the session lock and answers with the new state.
// Browsers posting the form are redirected back to the page.
func (a *App) apply(w http.ResponseWriter, r *http.Request, op func(sel *datepicker.Selector, resp *StateResponse)) {
	sess := sessionFrom(r)

	var resp StateResponse
	sess.with(a.now(), func(sel *datepicker.Selector) {
		op(sel, &resp)
		valid := resp.Valid
		resp = state(sess)
		resp.Valid = valid
	})

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, "/calendars/"+sess.id, http.StatusSeeOther)
}

// =============================================================================
// HELPERS
// =============================================================================

func (a *App) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, ok := a.session(id)
		if !ok {
			writeError(w, http.StatusNotFound, "calendar not found", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

// readEvent decodes a JSON body or reads the form. It answers 400 itself
// when the request is malformed.
func readEvent(w http.ResponseWriter, r *http.Request) (EventRequest, bool) {
	var ev EventRequest

	if isJSONBody(r) {
		err := json.NewDecoder(r.Body).Decode(&ev)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return ev, false
		}
		return ev, true
	}

	ev.Date = r.FormValue("date")
	for _, field := range []struct {
		name string
		dst  **int
	}{{"year", &ev.Year}, {"month", &ev.Month}} {
		value := r.FormValue(field.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+field.name, err)
			return ev, false
		}
		*field.dst = &n
	}
	return ev, true
}

func sessionFrom(r *http.Request) *session {
	return r.Context().Value(ctxKey{}).(*session)
}

// state snapshots sess; callers hold sess.mu
func state(sess *session) StateResponse {
	year, month := sess.selector.VisibleMonth()
	return StateResponse{
		ID:         sess.id,
		Year:       year,
		Month:      int(month),
		Dates:      sess.selector.GetSelectedDates(),
		LastChange: append([]string{}, sess.lastChange...),
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") || isJSONBody(r)
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
