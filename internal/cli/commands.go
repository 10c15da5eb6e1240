package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rharish101/dilbert-viewer/internal/cache"
	"github.com/rharish101/dilbert-viewer/internal/core/strips"
)

func newStripCommand(a *app) *cobra.Command {
	var showLatest bool

	cmd := &cobra.Command{
		Use:   "strip YYYY-MM-DD",
		Short: "Print the strip for a date as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := strips.ParseDate(args[0])
			if err != nil {
				return err
			}

			svc, closeService, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeService()

			res, err := svc.ResolveStrip(cmd.Context(), date, showLatest)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newStripOutput(res))
		},
	}
	cmd.Flags().BoolVar(&showLatest, "latest", false, "show the latest strip if none exists for the date")
	return cmd
}

func newLatestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the latest strip as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeService, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeService()

			latest, err := svc.LatestDate(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ResolveStrip(cmd.Context(), latest, true)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newStripOutput(res))
		},
	}
}

func newRandomCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Print a random strip as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeService, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeService()

			date, err := svc.RandomDate(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ResolveStrip(cmd.Context(), date, false)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newStripOutput(res))
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cached latest strip date fresh until interrupted",
		Long: `watch re-probes the source for the latest strip date on a fixed interval
so that other readers of the shared cache always find a fresh date. With
--metrics-addr it also serves Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = a.cfg.Strips.RefreshInterval
			}
			if interval <= 0 {
				interval = a.cfg.Strips.LatestFreshness
			}

			svc, closeService, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeService()

			if a.cfg.MetricsAddr != "" {
				stopMetrics := serveMetrics(a.cfg.MetricsAddr, a.registry)
				defer stopMetrics()
			}

			stopRefresh := svc.StartLatestRefreshJob(interval)
			defer stopRefresh()

			latest, err := svc.LatestDate(cmd.Context())
			if err != nil {
				slog.Warn("[VIEWER] initial latest date lookup failed", "error", err)
			} else {
				slog.Info("[VIEWER] watching latest date", "date", strips.FormatDate(latest), "interval", interval)
			}

			<-cmd.Context().Done()
			slog.Info("[VIEWER] shutting down")
			for kind, stats := range svc.CircuitStats() {
				slog.Info("[VIEWER] scrape circuit",
					"kind", kind,
					"state", stats.State,
					"failures", stats.Failures,
				)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default VIEWER_REFRESH_INTERVAL, else VIEWER_LATEST_REFRESH)")
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the cache schema for SQL backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasSchema, err := cache.HasSchema(a.cfg.Cache.URL)
			if err != nil {
				return err
			}
			if !hasSchema {
				fmt.Fprintln(cmd.OutOrStdout(), "cache backend has no schema, nothing to migrate")
				return nil
			}

			store, err := cache.Open(cmd.Context(), a.cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			if err := store.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache schema is up to date")
			return nil
		},
	}
}

// newMetricsRouter routes the Prometheus scrape endpoint and a health check.
func newMetricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           newMetricsRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("[VIEWER] serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[VIEWER] metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("[VIEWER] metrics server shutdown", "error", err)
		}
	}
}
