package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/timeutil"
	"github.com/mmrzaf/sdcatalog/internal/validation"
)

func (c *cli) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Track synthetic generation tasks",
	}

	var req domain.TaskRequest
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new generation task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			task, err := deps.Tasks.RegisterTask(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", task.ID, task.Status, task.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
	registerCmd.Flags().StringVar(&req.Username, "username", "", "Requesting user")
	registerCmd.Flags().StringVar(&req.Model, "model", "", "Generative model")
	registerCmd.Flags().Int64Var(&req.NSample, "n-sample", 0, "Number of samples to generate")
	registerCmd.Flags().StringVar(&req.Disease, "disease", "", "Disease tag")
	registerCmd.Flags().StringVar(&req.Condition, "condition", "", "Optional generation condition")
	for _, name := range []string{"username", "model", "n-sample", "disease"} {
		_ = registerCmd.MarkFlagRequired(name)
	}

	statusCmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show a task's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			status, err := deps.Tasks.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}

	setStatusCmd := &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Overwrite a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := validation.ParseStatus(args[1])
			if err != nil {
				return err
			}
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Tasks.UpdateStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], status)
			return nil
		},
	}
	setStatusCmd.Flags().BoolVar(&c.cfg.StrictTransition, "strict", c.cfg.StrictTransition, "Reject out-of-order status changes")

	var (
		format string
		status string
		since  string
		limit  int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			filter := domain.TaskFilter{Limit: limit}
			if status != "" {
				st, err := validation.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = st
			}
			if since != "" {
				t, err := timeutil.ParseSince(since, time.Now())
				if err != nil {
					return err
				}
				filter.CreatedAfter = &t
			}

			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			list, err := deps.Tasks.ListTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, list, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TASK ID\tSTATUS\tUSER\tMODEL\tDISEASE\tSAMPLES\tCREATED")
				for _, t := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
						t.ID, t.Status, t.Username, t.Model, t.Disease, t.NSample,
						t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				}
			})
		},
	}
	listCmd.Flags().StringVar(&format, "format", formatTable, "Output format (table|json|yaml)")
	listCmd.Flags().StringVar(&status, "status", "", "Only tasks with this status")
	listCmd.Flags().StringVar(&since, "since", "", "Only tasks created after this time (RFC 3339, YYYY-MM-DD or -24h)")
	listCmd.Flags().IntVar(&limit, "limit", domain.DefaultTaskListLimit, "Maximum number of tasks")

	cmd.AddCommand(registerCmd, statusCmd, setStatusCmd, listCmd)
	return cmd
}
