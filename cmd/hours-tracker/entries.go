package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/username/hours-tracker/internal/hoursapi"
	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/pkg/dateutil"
)

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect and edit registered hours",
	}

	cmd.AddCommand(entriesListCmd())
	cmd.AddCommand(entriesUpdateCmd())
	cmd.AddCommand(entriesDeleteCmd())

	return cmd
}

func entriesListCmd() *cobra.Command {
	var from, to string
	var projectID int64
	var period bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries of the current month, a range or the active period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			filter := hoursapi.Filter{From: from, To: to, ProjectID: projectID}
			if period {
				p, err := client.GetActivePeriod(ctx)
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("no active period")
				}
				printf("%s: %s .. %s, target %sh\n", p.Name, p.StartDate, p.EndDate, p.TargetHours)
				filter.From, filter.To = p.StartDate, p.EndDate
			}
			if filter.From == "" && filter.To == "" {
				today := dateutil.Today()
				first := dateutil.StartOfMonth(today)
				filter.From = dateutil.FormatISO(first)
				filter.To = dateutil.FormatISO(first.AddDate(0, 1, -1))
			}

			entries, err := client.ListHours(ctx, filter)
			if err != nil {
				return err
			}

			total := decimal.Zero
			printLine("  Id     | Date       | Hours | Project              | Description")
			printLine("---------+------------+-------+----------------------+------------")
			for _, e := range entries {
				printf("  %-6d | %s | %5s | %-20s | %s\n",
					e.ID, e.Date, hoursfield.FormatClock(e.Hours), e.ProjectName, e.Description)
				total = total.Add(e.Hours)
			}
			printf("\n%d entries, %s hours\n", len(entries), hoursfield.FormatDecimal(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&projectID, "project", 0, "Filter by project id")
	cmd.Flags().BoolVar(&period, "period", false, "Use the dates of the active period")

	return cmd
}

func entriesUpdateCmd() *cobra.Command {
	var req hoursapi.HourRequest
	var hours, taskType string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			if !dateutil.IsValidISO(req.Date) {
				return fmt.Errorf("invalid --date %q", req.Date)
			}
			limits, err := cfg.Hours.Limits()
			if err != nil {
				return err
			}
			if req.Hours, err = hoursfield.ParseValid(hours, limits); err != nil {
				return fmt.Errorf("invalid --hours %q: %w", hours, err)
			}
			req.TaskType = hoursapi.TaskType(taskType)

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := client.UpdateHour(ctx, id, req); err != nil {
				return err
			}
			printf("entry #%d updated\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "Project id")
	cmd.Flags().StringVar(&hours, "hours", "", "Hours, decimal (1.5) or HH:MM (01:30)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Entry description")
	cmd.Flags().StringVar(&taskType, "type", string(hoursapi.TaskTypeTask), "Task type (tarea|reunion)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("hours")

	return cmd
}

func entriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := client.DeleteHour(context.Background(), id); err != nil {
				return err
			}
			printf("entry #%d deleted\n", id)
			return nil
		},
	}
}
