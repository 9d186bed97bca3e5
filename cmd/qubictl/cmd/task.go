package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

var (
	taskProjectID int64
	taskTitle     string
	taskDesc      string
	taskStatus    string
	taskDueDate   string
	taskAssignee  int64
	taskVersion   int64
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task management commands",
	Long: `Commands for managing tasks inside a project.

Like projects, task updates carry the version you last saw. A stale
version fails with a conflict; list the board again and retry.

Statuses you can assign: "Not Started", "In Progress", "Completed".
The server marks tasks Overdue on its own when a due date passes.

Examples:
  # List a project's tasks
  qubictl task list --project 3

  # List everything assigned to user 5
  qubictl task list --assignee 5

  # Add a task
  qubictl task create --project 3 --title "Write the report" --due 2026-09-15

  # Move a task between columns
  qubictl task move 17 --status "In Progress" --version 4

  # Delete a task
  qubictl task delete 17`,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks by project or by assignee",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (taskProjectID <= 0) == (taskAssignee <= 0) {
			return fmt.Errorf("pass exactly one of --project or --assignee")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		var tasks []models.Task
		if taskProjectID > 0 {
			tasks, err = c.Tasks().ListForProject(context.Background(), taskProjectID)
		} else {
			tasks, err = c.Tasks().ListForAssignee(context.Background(), taskAssignee)
		}
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if output == "json" {
			return printJSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		fmt.Printf("\n%-6s  %-32s  %-12s  %-10s  %-8s\n",
			"ID", "TITLE", "STATUS", "DUE", "VERSION")
		fmt.Println(strings.Repeat("-", 78))
		for _, t := range tasks {
			due := "-"
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			fmt.Printf("%-6d  %-32s  %-12s  %-10s  %-8d\n",
				t.ID, truncate(t.Title, 32), t.Status, due, t.Version)
		}
		fmt.Printf("\nTotal: %d task(s)\n", len(tasks))
		return nil
	},
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a task to a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskProjectID <= 0 {
			return fmt.Errorf("--project is required")
		}
		if taskTitle == "" {
			return fmt.Errorf("--title is required")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		params := client.CreateTaskParams{
			Title:       strings.TrimSpace(taskTitle),
			Description: strings.TrimSpace(taskDesc),
			ProjectID:   taskProjectID,
		}
		if taskDueDate != "" {
			due, err := time.Parse("2006-01-02", taskDueDate)
			if err != nil {
				return fmt.Errorf("--due must be YYYY-MM-DD")
			}
			params.DueDate = &due
		}
		if taskAssignee > 0 {
			params.AssigneeID = &taskAssignee
		}

		task, err := c.Tasks().Create(context.Background(), params)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		if output == "json" {
			return printJSON(task)
		}
		fmt.Println("\nTask created:")
		fmt.Printf("  ID:      %d\n", task.ID)
		fmt.Printf("  Title:   %s\n", task.Title)
		fmt.Printf("  Status:  %s\n", task.Status)
		fmt.Printf("  Version: %d\n", task.Version)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a task to another status column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, ok := models.ParseTaskStatus(taskStatus)
		if !ok {
			return fmt.Errorf("unknown status %q: use \"Not Started\", \"In Progress\", or \"Completed\"", taskStatus)
		}
		if taskVersion <= 0 {
			return fmt.Errorf("--version is required: pass the version from 'task list'")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		if err := c.Tasks().Move(context.Background(), id, status, taskVersion); err != nil {
			if client.IsConflict(err) {
				return fmt.Errorf("version %d is stale, the task changed since you read it: rerun 'qubictl task list --project <id>' and retry", taskVersion)
			}
			return fmt.Errorf("move task: %w", err)
		}
		fmt.Printf("Task %d moved to %s.\n", id, status)
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a task's fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one task id")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if taskVersion <= 0 {
			return fmt.Errorf("--version is required: pass the version from 'task list'")
		}

		params := client.UpdateTaskParams{Version: taskVersion}
		if cmd.Flags().Changed("title") {
			title := strings.TrimSpace(taskTitle)
			params.Title = &title
		}
		if cmd.Flags().Changed("description") {
			desc := strings.TrimSpace(taskDesc)
			params.Description = &desc
		}
		if cmd.Flags().Changed("status") {
			status, ok := models.ParseTaskStatus(taskStatus)
			if !ok {
				return fmt.Errorf("unknown status %q", taskStatus)
			}
			params.Status = &status
		}
		if cmd.Flags().Changed("due") {
			due, err := time.Parse("2006-01-02", taskDueDate)
			if err != nil {
				return fmt.Errorf("--due must be YYYY-MM-DD")
			}
			params.DueDate = &due
		}
		if cmd.Flags().Changed("assignee") {
			params.AssigneeID = &taskAssignee
		}

		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		if err := c.Tasks().Update(context.Background(), id, params); err != nil {
			if client.IsConflict(err) {
				return fmt.Errorf("version %d is stale, the task changed since you read it: rerun 'qubictl task list --project <id>' and retry", taskVersion)
			}
			return fmt.Errorf("update task: %w", err)
		}
		fmt.Printf("Task %d updated.\n", id)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		if err := c.Tasks().Delete(context.Background(), id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		fmt.Printf("Task %d deleted.\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)

	taskListCmd.Flags().Int64Var(&taskProjectID, "project", 0, "project id")
	taskListCmd.Flags().Int64Var(&taskAssignee, "assignee", 0, "assignee user id")

	taskCreateCmd.Flags().Int64Var(&taskProjectID, "project", 0, "project id (required)")
	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	taskCreateCmd.Flags().StringVar(&taskDesc, "description", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskDueDate, "due", "", "due date (YYYY-MM-DD)")
	taskCreateCmd.Flags().Int64Var(&taskAssignee, "assignee", 0, "assignee user id")

	taskMoveCmd.Flags().StringVar(&taskStatus, "status", "", "target status (required)")
	taskMoveCmd.Flags().Int64Var(&taskVersion, "version", 0, "version you last saw (required)")

	taskUpdateCmd.Flags().StringVar(&taskTitle, "title", "", "new title")
	taskUpdateCmd.Flags().StringVar(&taskDesc, "description", "", "new description")
	taskUpdateCmd.Flags().StringVar(&taskStatus, "status", "", "new status")
	taskUpdateCmd.Flags().StringVar(&taskDueDate, "due", "", "new due date (YYYY-MM-DD)")
	taskUpdateCmd.Flags().Int64Var(&taskAssignee, "assignee", 0, "new assignee user id")
	taskUpdateCmd.Flags().Int64Var(&taskVersion, "version", 0, "version you last saw (required)")
}
