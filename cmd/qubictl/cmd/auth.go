package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
)

var (
	authEmail string
	authName  string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long: `Sign in to and out of a QubicBall tracker.

The credential is stored in your config directory and reused by every
other command until it expires or you sign out.

Examples:
  qubictl auth login --email you@example.com
  qubictl auth whoami
  qubictl auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authEmail == "" {
			return fmt.Errorf("--email is required")
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		c, cfg, err := newClient(false)
		if err != nil {
			return err
		}

		sess, err := c.Auth().Login(context.Background(), client.LoginParams{
			Email:    authEmail,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		if err := session.Save(sess, cfg.SessionPath); err != nil {
			return err
		}

		user := sess.User()
		fmt.Printf("Signed in as %s (%s, role %s)\n", user.Name, user.Email, user.Role)
		return nil
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authEmail == "" || authName == "" {
			return fmt.Errorf("--email and --name are required")
		}

		password, err := promptPassword("Password (min 8 characters): ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		c, _, err := newClient(false)
		if err != nil {
			return err
		}

		err = c.Auth().Register(context.Background(), client.RegisterParams{
			Name:     authName,
			Email:    authEmail,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}

		fmt.Println("Account created. Sign in with 'qubictl auth login'.")
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := newClient(true)
		if err != nil {
			return err
		}

		// Ask the server rather than trusting the cached profile.
		user, err := c.Auth().Profile(context.Background())
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}

		if output == "json" {
			return printJSON(user)
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		fmt.Printf("  ID:   %d\n", user.ID)
		fmt.Printf("  Role: %s\n", user.Role)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCLIConfig()
		if err != nil {
			return err
		}
		if err := session.Remove(cfg.SessionPath); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authLogoutCmd)

	authLoginCmd.Flags().StringVar(&authEmail, "email", "", "account email (required)")
	authRegisterCmd.Flags().StringVar(&authEmail, "email", "", "account email (required)")
	authRegisterCmd.Flags().StringVar(&authName, "name", "", "display name (required)")
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Fallback for non-terminal input (e.g. piped input)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
