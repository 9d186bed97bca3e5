package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

var boardProjectID int64

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show a project's task board",
	Long: `Show a project's tasks bucketed by status, the way the web
frontend's board page lays them out.

Example:
  qubictl board --project 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if boardProjectID <= 0 {
			return fmt.Errorf("--project is required")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		var (
			project *models.Project
			tasks   []models.Task
		)
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			var err error
			project, err = c.Projects().Get(ctx, boardProjectID)
			return err
		})
		g.Go(func() error {
			var err error
			tasks, err = c.Tasks().ListForProject(ctx, boardProjectID)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("fetch board: %w", err)
		}

		board := models.BuildBoard(tasks)
		if output == "json" {
			return printJSON(struct {
				Project *models.Project `json:"project"`
				Board   models.Board    `json:"board"`
			}{project, board})
		}

		fmt.Printf("\n%s (version %d)\n", project.Name, project.Version)
		if project.Description != "" {
			fmt.Println(project.Description)
		}
		printColumn("Not Started", board.NotStarted)
		printColumn("In Progress", board.InProgress)
		printColumn("Completed", board.Completed)
		printColumn("Overdue", board.Overdue)
		return nil
	},
}

func printColumn(title string, tasks []models.Task) {
	fmt.Printf("\n%s (%d)\n%s\n", title, len(tasks), strings.Repeat("-", len(title)+4))
	if len(tasks) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for _, t := range tasks {
		line := fmt.Sprintf("  [%d] %s", t.ID, t.Title)
		if t.DueDate != nil {
			line += fmt.Sprintf("  (due %s)", t.DueDate.Format("2006-01-02"))
		}
		line += fmt.Sprintf("  v%d", t.Version)
		fmt.Println(line)
	}
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().Int64Var(&boardProjectID, "project", 0, "project id (required)")
}
