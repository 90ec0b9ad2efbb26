package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/timesheet"
	"github.com/username/hours-tracker/pkg/dateutil"
)

func calendarCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "calendar [YYYY-MM]",
		Short: "Show the hours registered in a month, or on one day with --day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			builder, err := newTimesheet()
			if err != nil {
				return err
			}

			if day != "" {
				date, err := dateutil.ParseDate(day)
				if err != nil {
					return err
				}
				details, err := builder.Day(ctx, dateutil.FormatISO(date))
				if err != nil {
					return err
				}
				locale := builder.Locale()
				printLine(locale.DateTitle(date, false, dateutil.IsWeekend(date)))
				printf("%s", timesheet.DayText(details, locale))
				return nil
			}

			year, month, err := monthArg(args, time.Now())
			if err != nil {
				return err
			}
			view, err := builder.Month(ctx, year, month)
			if err != nil {
				return err
			}
			printf("%s", timesheet.Text(view))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Show the entries of one day (YYYY-MM-DD or DD/MM/YYYY)")

	return cmd
}

// newTimesheet builds the hours view on the backend client. A broken
// calendar only costs the holiday marks.
func newTimesheet() (*timesheet.Builder, error) {
	client, err := newAPIClient()
	if err != nil {
		return nil, err
	}

	var cal calendar.Calendar
	if c, err := initializeCalendar(client); err != nil {
		logger.Warn("Calendar unavailable, holidays will not be marked", zap.Error(err))
	} else {
		cal = c
	}

	return timesheet.NewBuilder(client, cal, cfg.Selector.Locale, logger), nil
}

// monthArg reads an optional YYYY-MM argument, defaulting to the month of now
func monthArg(args []string, now time.Time) (int, time.Month, error) {
	if len(args) == 0 {
		return now.Year(), now.Month(), nil
	}
	year, month, err := dateutil.ParseMonth(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("expected YYYY-MM: %w", err)
	}
	return year, month, nil
}
