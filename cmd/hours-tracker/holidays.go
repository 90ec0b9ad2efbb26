package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/pkg/dateutil"
)

func holidaysCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List holidays known to the calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end := calendar.HolidayRange(time.Now(), cfg.Selector.MinDate, cfg.Selector.MaxDate)
			var err error
			if from != "" {
				if start, err = dateutil.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = dateutil.ParseDate(to); err != nil {
					return err
				}
			}

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			cal, err := initializeCalendar(client)
			if err != nil {
				return err
			}

			holidays, err := calendar.Holidays(context.Background(), cal, start, end)
			if err != nil {
				return err
			}

			locale := datepicker.LookupLocale(cfg.Selector.Locale)
			for _, h := range holidays {
				day, _ := dateutil.ParseISO(h)
				printf("%s  %s\n", h, locale.DateTitle(day, false, false))
			}
			printf("%d holiday(s)\n", len(holidays))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD or DD/MM/YYYY)")

	return cmd
}

func hoursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hours VALUE",
		Short: "Check and convert an hours value (1.5 or 01:30)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := hoursfield.Normalize(hoursfield.AutoComplete(args[0]))

			limits, err := cfg.Hours.Limits()
			if err != nil {
				return err
			}
			if _, err := hoursfield.ParseValid(value, limits); err != nil {
				return err
			}

			if text, ok := hoursfield.Conversion(value); ok {
				printLine(text)
			}
			return nil
		},
	}
}
