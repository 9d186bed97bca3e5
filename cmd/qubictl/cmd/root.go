// Package cmd contains the CLI commands for qubictl.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
	"github.com/felixnatanaelbutarbutar/qubicball/pkg/logger"
)

var (
	// Used for flags
	verbose bool
	output  string
	apiURL  string
	cfgPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qubictl",
	Short: "QubicBall - project and task tracker CLI",
	Long: `qubictl talks to a QubicBall tracker server from the terminal.

It covers the same ground as the web frontend: authentication, the
project listing, and the per-project task board, with the same
optimistic concurrency rules. Every update carries the version you
last saw; if someone edited in between, the command fails with a
conflict and you rerun it against the fresh state.

Examples:
  # Sign in and remember the credential
  qubictl auth login --email you@example.com

  # List projects
  qubictl project list

  # Show a project's board
  qubictl board --project 3

  # Move a task to another column
  qubictl task move 17 --status "In Progress" --version 4`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "tracker API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path (default ~/.config/qubictl/config.yaml)")
}

// cliConfig is the qubictl config file.
type cliConfig struct {
	APIURL            string  `yaml:"api_url"`
	CachePath         string  `yaml:"cache_path"`
	SessionPath       string  `yaml:"session_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

func loadCLIConfig() (*cliConfig, error) {
	path := cfgPath
	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}

	var cfg cliConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err) && cfgPath == "":
		// No config file is fine, flags and env cover it.
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if env := os.Getenv("QUBICBALL_API_URL"); env != "" && cfg.APIURL == "" {
		cfg.APIURL = env
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("no API URL configured: set api_url in the config, QUBICBALL_API_URL, or --api")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(cacheDir(), "cache.db")
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = filepath.Join(configDir(), "session.json")
	}
	return &cfg, nil
}

// newClient builds the API client for a command run. The sqlite cache
// makes repeat listings cheap across invocations; authenticated commands
// also need the saved session.
func newClient(requireSession bool) (*client.Client, *cliConfig, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, nil, err
	}

	var store cache.Store
	if sqlite, err := cache.OpenSQLite(cfg.CachePath); err != nil {
		// A broken cache should not keep the CLI from working.
		fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
	} else {
		store = sqlite
	}

	log := logger.Nop()
	if verbose {
		log = logger.New(logger.Options{Level: "debug", Pretty: true, Output: os.Stderr})
	}

	c, err := client.New(client.Config{
		BaseURL:           cfg.APIURL,
		Cache:             store,
		Logger:            &log,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	sess, err := session.Load(cfg.SessionPath)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil && requireSession {
		return nil, nil, fmt.Errorf("not signed in: run 'qubictl auth login' first")
	}
	if sess != nil {
		c = c.WithSession(sess)
	}
	return c, cfg, nil
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "qubictl")
	}
	return filepath.Join(os.TempDir(), "qubictl")
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "qubictl")
	}
	return filepath.Join(os.TempDir(), "qubictl")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}
