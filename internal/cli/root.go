// Package cli implements the viewer command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rharish101/dilbert-viewer/internal/cache"
	"github.com/rharish101/dilbert-viewer/internal/config"
	"github.com/rharish101/dilbert-viewer/internal/core/strips"
	"github.com/rharish101/dilbert-viewer/internal/source"
)

// Exit codes
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitNotFound = 2
)

// app carries what every subcommand needs once flags and environment are read.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *strips.Metrics
}

// openService connects the cache and builds the strip service. The returned
// close function releases the cache.
func (a *app) openService(ctx context.Context) (*strips.Service, func(), error) {
	store, err := cache.Open(ctx, a.cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			slog.Warn("[VIEWER] failed to close cache", "error", err)
		}
	}

	client, err := source.NewClientFromConfig(a.cfg.Source)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	svc, err := strips.NewService(store, client, a.cfg.Strips, strips.WithMetrics(a.metrics))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

// NewRootCommand builds the viewer command tree.
func NewRootCommand() *cobra.Command {
	var (
		a           app
		cacheURL    string
		logLevel    string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:   "viewer",
		Short: "Look up daily strips through a shared cache.",
		Long: `viewer resolves daily strips by date, reading through a shared cache
and scraping the source site only when the cache cannot answer.

Configuration is read from VIEWER_* environment variables; the flags below
override the matching variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cacheURL != "" {
				cfg.Cache.URL = cacheURL
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := cfg.Level()
			if err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), level)

			a.cfg = cfg
			a.registry = prometheus.NewRegistry()
			a.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			a.metrics = strips.NewMetrics(a.registry)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cacheURL, "cache-url", "", "cache backend URL (overrides VIEWER_CACHE_URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides VIEWER_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus listen address (overrides VIEWER_METRICS_ADDR)")

	root.AddCommand(
		newStripCommand(&a),
		newLatestCommand(&a),
		newRandomCommand(&a),
		newWatchCommand(&a),
		newMigrateCommand(&a),
	)
	return root
}

func setupLogging(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, strips.ErrStripNotFound), errors.Is(err, strips.ErrInvalidDate):
		return ExitNotFound
	default:
		return ExitInternal
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted, and returns the exit status. It is called by main.main().
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return ExitCode(err)
	}
	return ExitOK
}
