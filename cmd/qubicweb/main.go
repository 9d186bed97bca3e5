package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/web"
	"github.com/felixnatanaelbutarbutar/qubicball/pkg/config"
	"github.com/felixnatanaelbutarbutar/qubicball/pkg/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "qubicweb",
	Short: "QubicBall Web - browser frontend for the QubicBall tracker",
	Long: `QubicBall Web serves the tracker pages: sign-in, the project
dashboard, and the per-project task board, rendered from the tracker API.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString("qubicweb"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx, configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	store, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	api, err := client.New(client.Config{
		BaseURL:           cfg.API.BaseURL,
		Cache:             store,
		Logger:            &log,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	srv, err := web.NewServer(api, cfg.Session.CSRFKey, cfg.Session.TTL, cfg.Session.SecureCookies, log)
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Routes(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Listen).Str("api", cfg.API.BaseURL).Msg("qubicweb listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openCache picks the cache backend: redis when configured so replicas
// share one view, in-process memory otherwise.
func openCache(ctx context.Context, cfg *Config) (cache.Store, error) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(), nil
	}
	return cache.OpenRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.Namespace)
}
