// Package web hosts selector instances behind an HTML/JSON interface.
// Each instance lives in a session; every request is one UI event applied
// to that session's selector.
package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/daemon"
	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/timesheet"
)

// Options configures an App
type Options struct {
	// Selector is the base configuration of every session. Holidays are
	// added from the calendar and handlers are owned by the App.
	Selector       datepicker.Config
	AllowedOrigins []string
	CSRFKey        []byte // empty disables CSRF protection
	SecureCookies  bool
	Now            func() time.Time

	// Refresher is reported by /healthz when set
	Refresher RefreshStatus

	// Timesheet serves the hours month view under /hours when set
	Timesheet *timesheet.Builder
}

// RefreshStatus is implemented by *daemon.Refresher
type RefreshStatus interface {
	Status() daemon.Status
}

// App is the explicit application state shared by all handlers
type App struct {
	opts   Options
	cal    calendar.Calendar
	now    func() time.Time
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu         sync.Mutex
	id         string
	selector   *datepicker.Selector
	renderer   *datepicker.HTMLRenderer
	lastChange []string
	createdAt  time.Time
	usedAt     time.Time
}

// NewApp creates the host. cal may be nil, in which case no holidays are marked.
func NewApp(opts Options, cal calendar.Calendar, logger *zap.Logger) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &App{
		opts:     opts,
		cal:      cal,
		now:      opts.Now,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// CreateSession builds a new selector instance and returns its id
func (a *App) CreateSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	now := a.now()

	sess := &session{
		id:         id,
		renderer:   datepicker.NewHTMLRenderer("/calendars/" + id),
		lastChange: []string{},
		createdAt:  now,
		usedAt:     now,
	}

	cfg := a.opts.Selector
	cfg.Holidays = append(append([]string(nil), cfg.Holidays...), a.holidays(ctx)...)
	cfg.Handlers = datepicker.Handlers{
		OnDateSelect: func(date string) {
			a.logger.Debug("Date selected", zap.String("session", id), zap.String("date", date))
		},
		OnDateDeselect: func(date string) {
			a.logger.Debug("Date deselected", zap.String("session", id), zap.String("date", date))
		},
		// Runs inside a selector call, which holds sess.mu.
		OnChange: func(dates []string) {
			sess.lastChange = dates
		},
	}

	selector, err := datepicker.New("calendar-"+id, cfg, a.logger,
		datepicker.WithClock(a.now),
		datepicker.WithRenderer(sess.renderer))
	if err != nil {
		return "", fmt.Errorf("failed to create selector: %w", err)
	}
	sess.selector = selector

	a.mu.Lock()
	a.sessions[id] = sess
	a.mu.Unlock()

	a.logger.Info("Selector session created", zap.String("session", id))
	return id, nil
}

func (a *App) session(id string) (*session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sess, ok := a.sessions[id]
	return sess, ok
}

// DeleteSession tears a session down and returns its final selection
func (a *App) DeleteSession(id string) ([]string, bool) {
	a.mu.Lock()
	sess, ok := a.sessions[id]
	delete(a.sessions, id)
	a.mu.Unlock()

	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	dates := sess.selector.GetSelectedDates()

	a.logger.Info("Selector session closed",
		zap.String("session", id),
		zap.Int("selected", len(dates)))

	return dates, true
}

// PruneIdle drops sessions unused for longer than maxIdle
func (a *App) PruneIdle(maxIdle time.Duration) int {
	cutoff := a.now().Add(-maxIdle)

	a.mu.Lock()
	defer a.mu.Unlock()

	pruned := 0
	for id, sess := range a.sessions {
		sess.mu.Lock()
		idle := sess.usedAt.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(a.sessions, id)
			pruned++
		}
	}

	if pruned > 0 {
		a.logger.Info("Idle selector sessions pruned", zap.Int("count", pruned))
	}
	return pruned
}

// Len returns the number of live sessions
func (a *App) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// holidays covers calendar.HolidayRange around today.
// Calendar failures degrade to no holidays.
func (a *App) holidays(ctx context.Context) []string {
	if a.cal == nil {
		return nil
	}

	from, to := calendar.HolidayRange(a.now(), a.opts.Selector.MinDate, a.opts.Selector.MaxDate)

	holidays, err := calendar.Holidays(ctx, a.cal, from, to)
	if err != nil {
		a.logger.Warn("Failed to load holidays, continuing without them", zap.Error(err))
		return nil
	}
	return holidays
}

// with runs fn under the session lock
func (s *session) with(now time.Time, fn func(sel *datepicker.Selector)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedAt = now
	fn(s.selector)
}
