package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"post_importer/internal/config"
	"post_importer/internal/httpapi"
	"post_importer/internal/metrics"
	"post_importer/internal/render"
)

var (
	configPath string
	renderJSON bool
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "importer",
	Short:         "Import articles from a remote feed and render article lists",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = setupLogger("info")

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return err
		}

		logger = setupLogger(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the structured list instead of HTML")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(renderCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled imports and serve article lists over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run one import now and print its report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, runErr := a.scheduler.RunNow(ctx)
		if report != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
		}
		if runErr != nil {
			logger.Error("import failed", "error", runErr)
		}
		return runErr
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <directive>",
	Short: `Render a directive such as '[article-list count="3" sort="rating"]'`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		attrs, err := render.ParseDirective(args[0])
		if err != nil {
			return err
		}

		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		renderer, err := newRenderer(db, cfg, nil, logger)
		if err != nil {
			return err
		}

		list := renderer.Render(ctx, render.ParseParams(attrs))
		if renderJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		return renderer.WriteHTML(cmd.OutOrStdout(), list)
	},
}

func runServe(ctx context.Context) error {
	collectors := metrics.New(prometheus.DefaultRegisterer)

	a, err := newApp(ctx, cfg, logger, collectors)
	if err != nil {
		return err
	}
	defer a.Close()

	renderer, err := newRenderer(a.db, cfg, collectors, logger)
	if err != nil {
		return err
	}

	var fragments httpapi.FragmentCache
	if a.cache != nil {
		fragments = a.cache
	}

	handler := httpapi.NewHandler(renderer, fragments, a.scheduler, a.runs, a.feed.Name(), logger)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(handler, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.scheduler.Activate(ctx)
	defer a.scheduler.Deactivate()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("starting post importer",
		"feed", a.feed.Name(),
		"interval", cfg.Import.Interval,
		"run_on_start", cfg.Import.ShouldRunOnStart(),
	)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
