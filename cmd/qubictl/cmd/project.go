package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
)

var (
	projectName    string
	projectDesc    string
	projectVersion int64
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing QubicBall projects.

Updates and deletes follow the tracker's optimistic concurrency rules:
pass the version you last saw with --version. If someone else edited
the project in between, the command fails with a conflict; list or
show the project again and retry with the new version.

Examples:
  # List all projects
  qubictl project list

  # Create a new project
  qubictl project create --name my-project --description "My project"

  # Rename a project you saw at version 3
  qubictl project update 7 --name new-name --version 3

  # Delete a project
  qubictl project delete 7`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		projects, err := c.Projects().List(context.Background())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if output == "json" {
			return printJSON(projects)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		fmt.Printf("\n%-6s  %-24s  %-32s  %-8s  %s\n",
			"ID", "NAME", "DESCRIPTION", "VERSION", "UPDATED")
		fmt.Println(strings.Repeat("-", 92))
		for _, p := range projects {
			fmt.Printf("%-6d  %-24s  %-32s  %-8d  %s\n",
				p.ID,
				truncate(p.Name, 24),
				truncate(p.Description, 32),
				p.Version,
				p.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(projects))
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show project details",
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

		project, err := c.Projects().Get(context.Background(), id)
		if err != nil {
			return fmt.Errorf("show project: %w", err)
		}

		if output == "json" {
			return printJSON(project)
		}
		fmt.Println("\nProject Details:")
		fmt.Printf("  ID:          %d\n", project.ID)
		fmt.Printf("  Name:        %s\n", project.Name)
		fmt.Printf("  Description: %s\n", project.Description)
		fmt.Printf("  Version:     %d\n", project.Version)
		if project.Owner != nil {
			fmt.Printf("  Owner:       %s\n", project.Owner.Name)
		}
		fmt.Printf("  Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Updated:     %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectName == "" {
			return fmt.Errorf("--name is required")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		project, err := c.Projects().Create(context.Background(), client.CreateProjectParams{
			Name:        strings.TrimSpace(projectName),
			Description: strings.TrimSpace(projectDesc),
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		if output == "json" {
			return printJSON(project)
		}
		fmt.Println("\nProject created:")
		fmt.Printf("  ID:      %d\n", project.ID)
		fmt.Printf("  Name:    %s\n", project.Name)
		fmt.Printf("  Version: %d\n", project.Version)
		return nil
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a project's name or description",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one project id")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if projectName == "" {
			return fmt.Errorf("--name is required")
		}
		if projectVersion <= 0 {
			return fmt.Errorf("--version is required: pass the version from 'project show'")
		}
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		ctx := context.Background()
		err = c.Projects().Update(ctx, id, client.UpdateProjectParams{
			Name:        strings.TrimSpace(projectName),
			Description: strings.TrimSpace(projectDesc),
			Version:     projectVersion,
		})
		if err != nil {
			if client.IsConflict(err) {
				return fmt.Errorf("version %d is stale, the project changed since you read it: rerun 'qubictl project show %d' and retry with the current version", projectVersion, id)
			}
			return fmt.Errorf("update project: %w", err)
		}

		project, err := c.Projects().Get(ctx, id)
		if err != nil {
			fmt.Println("Project updated.")
			return nil
		}
		fmt.Printf("Project updated, now at version %d.\n", project.Version)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
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

		if err := c.Projects().Delete(context.Background(), id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		fmt.Printf("Project %d deleted.\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name (required)")
	projectCreateCmd.Flags().StringVar(&projectDesc, "description", "", "project description")
	projectUpdateCmd.Flags().StringVar(&projectName, "name", "", "new project name (required)")
	projectUpdateCmd.Flags().StringVar(&projectDesc, "description", "", "new project description")
	projectUpdateCmd.Flags().Int64Var(&projectVersion, "version", 0, "version you last saw (required)")
}
