// Package daemon runs the scheduled holiday refresh used by the web server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/pkg/dateutil"
)

// DefaultSchedule refreshes holidays every night at 03:00
const DefaultSchedule = "0 3 * * *"

var ErrRefreshRunning = errors.New("refresh already in progress")

// Status describes the last refresh
type Status struct {
	Running  bool
	Schedule string
	LastRun  time.Time
	LastErr  error
	NextRun  time.Time
}

// Refresher clears calendar caches and pre-fetches the current and next month
type Refresher struct {
	cal      calendar.Calendar
	schedule string
	parsed   cron.Schedule
	cron     *cron.Cron
	now      func() time.Time
	logger   *zap.Logger

	mu         sync.Mutex
	refreshing bool
	started    bool
	lastRun    time.Time
	lastErr    error
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewRefresher validates the cron schedule and creates a refresher
func NewRefresher(cal calendar.Calendar, schedule string, logger *zap.Logger) (*Refresher, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return &Refresher{
		cal:      cal,
		schedule: schedule,
		parsed:   parsed,
		cron:     cron.New(),
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Start schedules the refresh job. It returns immediately.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron.Schedule(r.parsed, cron.FuncJob(func() {
		if err := r.RunNow(r.ctx); err != nil && !errors.Is(err, ErrRefreshRunning) {
			r.logger.Error("Scheduled holiday refresh failed", zap.Error(err))
		}
	}))
	r.cron.Start()
	r.started = true

	r.logger.Info("Holiday refresher started",
		zap.String("schedule", r.schedule),
		zap.Time("next_run", r.parsed.Next(r.now())))

	return nil
}

// Stop cancels a running refresh and waits for the scheduler to finish
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.cancel()
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("Holiday refresher stopped")
}

// RunNow refreshes immediately. Concurrent calls are rejected with ErrRefreshRunning.
func (r *Refresher) RunNow(ctx context.Context) error {
	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		r.logger.Warn("Refresh already running, skipping concurrent execution")
		return ErrRefreshRunning
	}
	r.refreshing = true
	r.mu.Unlock()

	err := r.refresh(ctx)

	r.mu.Lock()
	r.refreshing = false
	r.lastRun = r.now()
	r.lastErr = err
	r.mu.Unlock()

	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	if c, ok := r.cal.(calendar.Cache); ok {
		c.ClearCache()
	}

	today := dateutil.CalendarDay(r.now())
	year, month := today.Year(), today.Month()

	for i := 0; i < 2; i++ {
		y, m := dateutil.AddMonths(year, month, i)
		info, err := r.cal.GetMonthInfo(ctx, y, m)
		if err != nil {
			return fmt.Errorf("failed to prefetch %04d-%02d: %w", y, int(m), err)
		}
		r.logger.Debug("Month prefetched",
			zap.Int("year", y),
			zap.String("month", m.String()),
			zap.Int("holidays", info.Holidays))
	}

	r.logger.Info("Holidays refreshed", zap.Time("date", today))
	return nil
}

// Status returns the last run and the next scheduled run
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		Running:  r.refreshing,
		Schedule: r.schedule,
		LastRun:  r.lastRun,
		LastErr:  r.lastErr,
		NextRun:  r.parsed.Next(r.now()),
	}
}
