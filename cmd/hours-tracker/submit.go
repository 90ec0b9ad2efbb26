package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/bulk"
	"github.com/username/hours-tracker/internal/draft"
	"github.com/username/hours-tracker/internal/hoursapi"
	"github.com/username/hours-tracker/internal/hoursfield"
)

func submitCmd() *cobra.Command {
	var (
		projectID   int64
		projectName string
		hours       string
		description string
		taskType    string
		dryRun      bool
		preview     bool
		keepDraft   bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register the same hours on every selected date",
		Example: `  hours-tracker submit --project 3 --hours 01:30 --description "Daily" --type reunion
  hours-tracker submit --project 3 --project-name Portal --hours 8 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limits, err := cfg.Hours.Limits()
			if err != nil {
				return err
			}
			amount, err := hoursfield.ParseValid(hours, limits)
			if err != nil {
				return fmt.Errorf("invalid --hours %q: %w", hours, err)
			}

			store := draft.NewStore(cfg.State.DraftFile, logger)
			state, err := store.Load()
			if err != nil {
				return err
			}

			plan, err := bulk.NewPlan(state.Selected, bulk.Template{
				ProjectID:   projectID,
				ProjectName: projectName,
				Hours:       amount,
				Description: description,
				TaskType:    hoursapi.TaskType(taskType),
			}, limits)
			if err != nil {
				return err
			}

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			registrar := bulk.NewRegistrar(client, logger)

			printf("%d date(s), %s each, %s in total\n",
				len(plan.Requests),
				hoursfield.FormatClock(amount),
				hoursfield.FormatDecimal(plan.TotalHours()))

			if preview {
				previews, err := registrar.Preview(ctx, plan)
				if err != nil {
					return err
				}
				printLine("  Date       | Existing | Hours  | Duplicate")
				printLine("-------------+----------+--------+----------")
				for _, p := range previews {
					printf("  %s | %8d | %6s | %v\n", p.Date, p.ExistingCount, hoursfield.FormatDecimal(p.ExistingHours), p.Duplicate)
				}
				return nil
			}

			result, err := registrar.Submit(ctx, plan, dryRun)
			if err != nil {
				return err
			}

			for _, day := range result.Days {
				switch day.Status {
				case bulk.StatusFailed:
					printf("  ✗ %s  %v\n", day.Date, day.Err)
				case bulk.StatusSkipped:
					printf("  = %s  already registered\n", day.Date)
				case bulk.StatusPlanned:
					printf("  📋 %s\n", day.Date)
				default:
					printf("  ✅ %s  #%d\n", day.Date, day.ID)
				}
			}

			printf("\nCreated %d, skipped %d, failed %d (%s hours) in %s\n",
				result.Created, result.Skipped, result.Failed,
				hoursfield.FormatDecimal(result.TotalHours),
				result.Duration.Round(time.Millisecond))

			if dryRun {
				printLine("[DRY RUN] No entries were created")
				return nil
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d date(s) failed, draft kept", result.Failed)
			}
			if !keepDraft {
				if err := store.Clear(); err != nil {
					logger.Warn("Failed to clear draft", zap.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	cmd.Flags().StringVar(&projectName, "project-name", "", "Project name, enables skipping dates already registered")
	cmd.Flags().StringVar(&hours, "hours", "", "Hours per date, decimal (1.5) or HH:MM (01:30)")
	cmd.Flags().StringVar(&description, "description", "", "Entry description")
	cmd.Flags().StringVar(&taskType, "type", string(hoursapi.TaskTypeTask), "Task type (tarea|reunion)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview actions without creating entries")
	cmd.Flags().BoolVar(&preview, "preview", false, "Show existing entries per date and exit")
	cmd.Flags().BoolVar(&keepDraft, "keep-draft", false, "Keep the selection after a successful submit")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("hours")

	return cmd
}
