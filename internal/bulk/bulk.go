// Package bulk registers one block of hours on every selected date.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/hoursapi"
	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/pkg/dateutil"
)

var ErrNoDates = errors.New("no dates selected")

// API is the part of the hours client used for bulk registration
type API interface {
	GetHoursByDate(ctx context.Context, date string) ([]hoursapi.DateEntry, error)
	CreateHour(ctx context.Context, req hoursapi.HourRequest) (*hoursapi.CreatedHour, error)
}

// Template is the entry repeated on every date
type Template struct {
	ProjectID int64
	// ProjectName enables duplicate detection; the by-date endpoint only
	// reports project names.
	ProjectName string
	Hours       decimal.Decimal
	Description string
	TaskType    hoursapi.TaskType
}

// Plan is a validated set of requests, one per date, in date order
type Plan struct {
	Template Template
	Requests []hoursapi.HourRequest
}

// Dates returns the planned dates
func (p *Plan) Dates() []string {
	dates := make([]string, len(p.Requests))
	for i, req := range p.Requests {
		dates[i] = req.Date
	}
	return dates
}

// TotalHours is hours times the number of dates
func (p *Plan) TotalHours() decimal.Decimal {
	return p.Template.Hours.Mul(decimal.NewFromInt(int64(len(p.Requests))))
}

// NewPlan validates tmpl and dates. Duplicated dates are collapsed.
func NewPlan(dates []string, tmpl Template, limits hoursfield.Limits) (*Plan, error) {
	if tmpl.ProjectID <= 0 {
		return nil, fmt.Errorf("project is required")
	}
	if err := hoursfield.Validate(tmpl.Hours, limits); err != nil {
		return nil, fmt.Errorf("invalid hours: %w", err)
	}
	if tmpl.TaskType != "" && !tmpl.TaskType.Valid() {
		return nil, fmt.Errorf("invalid task type %q", tmpl.TaskType)
	}

	seen := make(map[string]struct{}, len(dates))
	unique := make([]string, 0, len(dates))
	for _, date := range dates {
		if !dateutil.IsValidISO(date) {
			return nil, fmt.Errorf("invalid date %q", date)
		}
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		unique = append(unique, date)
	}
	if len(unique) == 0 {
		return nil, ErrNoDates
	}
	sort.Strings(unique)

	plan := &Plan{Template: tmpl, Requests: make([]hoursapi.HourRequest, len(unique))}
	for i, date := range unique {
		plan.Requests[i] = hoursapi.HourRequest{
			Date:        date,
			ProjectID:   tmpl.ProjectID,
			Hours:       tmpl.Hours,
			Description: tmpl.Description,
			TaskType:    tmpl.TaskType,
		}
	}
	return plan, nil
}

// Status is the outcome for one date
type Status string

const (
	StatusPlanned Status = "planned"
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// DayResult represents the result for a single date
type DayResult struct {
	Date   string
	Status Status
	ID     int64
	Err    error
}

// Result summarizes a submission
type Result struct {
	Processed  int
	Created    int
	Skipped    int
	Failed     int
	TotalHours decimal.Decimal
	Days       []DayResult
	Duration   time.Duration
}

// Errors returns the per-date failures
func (r *Result) Errors() map[string]error {
	errs := make(map[string]error)
	for _, day := range r.Days {
		if day.Err != nil {
			errs[day.Date] = day.Err
		}
	}
	return errs
}

// DayPreview describes what already exists on a planned date
type DayPreview struct {
	Date          string
	ExistingCount int
	ExistingHours decimal.Decimal
	Duplicate     bool
}

// Registrar submits plans through the API
type Registrar struct {
	api    API
	logger *zap.Logger
}

// NewRegistrar creates a new registrar
func NewRegistrar(api API, logger *zap.Logger) *Registrar {
	return &Registrar{api: api, logger: logger}
}

// Preview reports existing entries per planned date without creating anything
func (r *Registrar) Preview(ctx context.Context, plan *Plan) ([]DayPreview, error) {
	previews := make([]DayPreview, 0, len(plan.Requests))
	for _, req := range plan.Requests {
		existing, err := r.api.GetHoursByDate(ctx, req.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to preview %s: %w", req.Date, err)
		}

		preview := DayPreview{Date: req.Date, ExistingCount: len(existing), ExistingHours: decimal.Zero}
		for _, e := range existing {
			preview.ExistingHours = preview.ExistingHours.Add(e.Hours)
		}
		preview.Duplicate = isDuplicate(existing, plan.Template)
		previews = append(previews, preview)
	}
	return previews, nil
}

// Submit creates the planned entries. Dates that already hold the same
// project and description are skipped. A failed date does not stop the run;
// a canceled context does.
func (r *Registrar) Submit(ctx context.Context, plan *Plan, dryRun bool) (*Result, error) {
	start := time.Now()

	r.logger.Info("Starting bulk registration",
		zap.Int("dates", len(plan.Requests)),
		zap.Int64("project", plan.Template.ProjectID),
		zap.String("hours", plan.Template.Hours.String()),
		zap.Bool("dry_run", dryRun))

	result := &Result{
		TotalHours: decimal.Zero,
		Days:       make([]DayResult, 0, len(plan.Requests)),
	}

	for _, req := range plan.Requests {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("bulk registration interrupted: %w", err)
		}

		day := r.submitDay(ctx, req, plan.Template, dryRun)
		result.Days = append(result.Days, day)
		result.Processed++

		switch day.Status {
		case StatusCreated, StatusPlanned:
			result.Created++
			result.TotalHours = result.TotalHours.Add(req.Hours)
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}

	result.Duration = time.Since(start)

	r.logger.Info("Bulk registration completed",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.String("total_hours", result.TotalHours.String()),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (r *Registrar) submitDay(ctx context.Context, req hoursapi.HourRequest, tmpl Template, dryRun bool) DayResult {
	if tmpl.ProjectName != "" {
		existing, err := r.api.GetHoursByDate(ctx, req.Date)
		if err != nil {
			r.logger.Error("Failed to check existing hours",
				zap.String("date", req.Date),
				zap.Error(err))
			return DayResult{Date: req.Date, Status: StatusFailed, Err: err}
		}
		if isDuplicate(existing, tmpl) {
			r.logger.Info("Entry already registered, skipping", zap.String("date", req.Date))
			return DayResult{Date: req.Date, Status: StatusSkipped}
		}
	}

	if dryRun {
		r.logger.Info("[DRY RUN] Would create entry",
			zap.String("date", req.Date),
			zap.String("hours", req.Hours.String()))
		return DayResult{Date: req.Date, Status: StatusPlanned}
	}

	created, err := r.api.CreateHour(ctx, req)
	if err != nil {
		r.logger.Error("Failed to create entry",
			zap.String("date", req.Date),
			zap.Error(err))
		return DayResult{Date: req.Date, Status: StatusFailed, Err: err}
	}

	return DayResult{Date: req.Date, Status: StatusCreated, ID: created.ID}
}

func isDuplicate(existing []hoursapi.DateEntry, tmpl Template) bool {
	if tmpl.ProjectName == "" {
		return false
	}
	for _, e := range existing {
		if e.Project == tmpl.ProjectName && e.Description == tmpl.Description {
			return true
		}
	}
	return false
}
