package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User directory commands",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Long: `List the tracker's users. Useful for finding an assignee id
for 'task create --assignee'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		users, err := c.Users().List(context.Background())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		if output == "json" {
			return printJSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		fmt.Printf("\n%-6s  %-24s  %-32s  %s\n", "ID", "NAME", "EMAIL", "ROLE")
		fmt.Println(strings.Repeat("-", 76))
		for _, u := range users {
			fmt.Printf("%-6d  %-24s  %-32s  %s\n",
				u.ID, truncate(u.Name, 24), truncate(u.Email, 32), u.Role)
		}
		fmt.Printf("\nTotal: %d user(s)\n", len(users))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
}
