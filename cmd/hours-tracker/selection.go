package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/draft"
	"github.com/username/hours-tracker/pkg/dateutil"
)

func monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show the draft selection on a month grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := draft.NewStore(cfg.State.DraftFile, logger)
			renderer := &datepicker.TextRenderer{}

			sel, err := loadSelector(context.Background(), store, renderer)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				year, month, err := dateutil.ParseMonth(args[0])
				if err != nil {
					return err
				}
				sel.GoToMonth(year, month)
				if err := saveSelector(store, sel); err != nil {
					return err
				}
			}

			printf("%s", renderer.String())
			return nil
		},
	}
}

func selectCmd() *cobra.Command {
	var (
		toggle, add, remove []string
		set                 string
		month               string
		clearAll, weekdays  bool
		prev, next, today   bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Change the draft selection",
		Long: `Apply selection events to the draft, in this order:
navigation (--month, --prev, --next, --today), --set, --clear, --weekdays,
--toggle, --add, --remove.`,
		Example: `  hours-tracker select --month 2024-02 --weekdays --toggle 2024-02-14
  hours-tracker select --set 2024-02-05,2024-02-06`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := draft.NewStore(cfg.State.DraftFile, logger)
			renderer := &datepicker.TextRenderer{}

			sel, err := loadSelector(context.Background(), store, renderer)
			if err != nil {
				return err
			}

			if month != "" {
				year, m, err := dateutil.ParseMonth(month)
				if err != nil {
					return err
				}
				sel.GoToMonth(year, m)
			}
			switch {
			case prev:
				sel.PrevMonth()
			case next:
				sel.NextMonth()
			case today:
				sel.GoToToday()
			}

			if set != "" {
				if rejected := sel.SetSelectedDates(splitDates(set)); len(rejected) > 0 {
					printf("ignored invalid dates: %s\n", strings.Join(rejected, ", "))
				}
			}
			if clearAll {
				sel.ClearAllDates()
			}
			if weekdays {
				sel.SelectWeekdaysInMonth()
			}
			for _, d := range toggle {
				day, err := dateutil.ParseISO(d)
				if err != nil {
					printf("ignored invalid date: %s\n", d)
					continue
				}
				if sel.IsDateDisabled(day) {
					printf("%s is not selectable\n", d)
					continue
				}
				sel.ToggleDate(d)
			}
			for _, d := range add {
				if !sel.AddDate(d) {
					printf("ignored invalid date: %s\n", d)
				}
			}
			for _, d := range remove {
				if !sel.RemoveDate(d) {
					printf("ignored invalid date: %s\n", d)
				}
			}

			if err := saveSelector(store, sel); err != nil {
				return err
			}

			printf("%s", renderer.String())
			printf("draft: %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&toggle, "toggle", nil, "Toggle dates (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&add, "add", nil, "Add dates without the enabled check")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Remove dates")
	cmd.Flags().StringVar(&set, "set", "", "Replace the selection (comma separated)")
	cmd.Flags().StringVar(&month, "month", "", "Show month YYYY-MM")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Clear the selection")
	cmd.Flags().BoolVar(&weekdays, "weekdays", false, "Select every enabled weekday of the visible month")
	cmd.Flags().BoolVar(&prev, "prev", false, "Show the previous month")
	cmd.Flags().BoolVar(&next, "next", false, "Show the next month")
	cmd.Flags().BoolVar(&today, "today", false, "Show the current month")
	cmd.MarkFlagsMutuallyExclusive("prev", "next", "today")

	return cmd
}

func splitDates(s string) []string {
	parts := strings.Split(s, ",")
	dates := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			dates = append(dates, p)
		}
	}
	return dates
}
