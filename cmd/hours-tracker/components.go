package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/config"
	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/draft"
	"github.com/username/hours-tracker/internal/hoursapi"
	"github.com/username/hours-tracker/pkg/dateutil"
)

func newAPIClient() (*hoursapi.Client, error) {
	client, err := hoursapi.NewClient(hoursapi.Options{
		BaseURL:           cfg.API.BaseURL,
		CSRFCookie:        cfg.API.CSRFCookie,
		CSRFBootstrapPath: cfg.API.CSRFBootstrapPath,
		Timeout:           cfg.API.GetTimeout(),
		Retries:           cfg.API.Retries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// holidayFetcher feeds the remote calendar from the backend's holiday list
func holidayFetcher(client *hoursapi.Client) calendar.HolidayFetcher {
	return calendar.HolidayFetcherFunc(func(ctx context.Context) ([]calendar.Holiday, error) {
		items, err := client.GetHolidays(ctx)
		if err != nil {
			return nil, err
		}

		holidays := make([]calendar.Holiday, 0, len(items))
		for _, item := range items {
			date, err := dateutil.ParseISO(item.Date)
			if err != nil {
				logger.Warn("Skipping holiday with invalid date",
					zap.Int64("id", item.ID),
					zap.String("date", item.Date))
				continue
			}
			holidays = append(holidays, calendar.Holiday{Date: date, Name: item.Name})
		}
		return holidays, nil
	})
}

func initializeCalendar(client *hoursapi.Client) (calendar.Calendar, error) {
	switch cfg.Calendar.Type {
	case config.CalendarFile:
		logger.Info("Using file calendar", zap.String("file", cfg.Calendar.File))
		fileCal := calendar.NewFileCalendar(cfg.Calendar.File, logger)
		if err := fileCal.Load(); err != nil {
			return nil, fmt.Errorf("failed to load calendar file: %w", err)
		}
		return fileCal, nil

	case config.CalendarRemote:
		logger.Info("Using backend holiday calendar")
		return calendar.NewRemoteCalendar(holidayFetcher(client), cfg.Calendar.GetCacheTTL(), logger), nil

	case config.CalendarComposite:
		logger.Info("Using backend holiday calendar with file fallback")
		primary := calendar.NewRemoteCalendar(holidayFetcher(client), cfg.Calendar.GetCacheTTL(), logger)
		composite := calendar.NewCompositeCalendar(primary, calendar.NewFileCalendar(cfg.Calendar.File, logger), logger)

		if err := composite.LoadFallback(); err != nil {
			logger.Warn("Failed to load fallback calendar, continuing with API only",
				zap.Error(err))
		}
		return composite, nil

	default:
		return nil, fmt.Errorf("unknown calendar type: %s", cfg.Calendar.Type)
	}
}

// loadSelector builds a selector from config and restores the draft into it.
// Change handlers echo every selection event to the terminal.
func loadSelector(ctx context.Context, store *draft.Store, renderer datepicker.Renderer) (*datepicker.Selector, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}

	selCfg := cfg.Selector.DatePicker()
	selCfg.Handlers = datepicker.Handlers{
		OnDateSelect:   func(date string) { printf("+ %s\n", date) },
		OnDateDeselect: func(date string) { printf("- %s\n", date) },
		OnChange: func(dates []string) {
			logger.Debug("Selection changed", zap.Int("count", len(dates)))
		},
	}

	client, err := newAPIClient()
	if err != nil {
		return nil, err
	}
	if cal, err := initializeCalendar(client); err != nil {
		logger.Warn("Calendar unavailable, holidays will not be marked", zap.Error(err))
	} else {
		from, to := calendar.HolidayRange(time.Now(), cfg.Selector.MinDate, cfg.Selector.MaxDate)
		holidays, err := calendar.Holidays(ctx, cal, from, to)
		if err != nil {
			logger.Warn("Failed to load holidays", zap.Error(err))
		}
		selCfg.Holidays = holidays
	}

	id := state.ContainerID
	if id == "" {
		id = "fechas"
	}

	sel, err := datepicker.New(id, selCfg, logger, datepicker.WithRenderer(renderer))
	if err != nil {
		return nil, err
	}

	if rejected := sel.SetSelectedDates(state.Selected); len(rejected) > 0 {
		logger.Warn("Draft contained invalid dates", zap.Strings("rejected", rejected))
	}
	if year, month, ok := state.VisibleMonth(); ok {
		sel.GoToMonth(year, month)
	}

	return sel, nil
}

func saveSelector(store *draft.Store, sel *datepicker.Selector) error {
	year, month := sel.VisibleMonth()
	return store.Save(sel.ID(), year, month, sel.GetSelectedDates())
}
