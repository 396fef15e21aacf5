// Command chunkstore runs the columnar chunk store as a standalone
// process: an in-memory store with its compaction/GC policy, a periodic
// GC sweep, and an optional cold-tier archive backend.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
	"github.com/rerun-io/rerun-sub034/internal/logging"
	"github.com/rerun-io/rerun-sub034/internal/memlimit"
	"github.com/rerun-io/rerun-sub034/internal/store"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // filtering done by ComponentFilterHandler
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "chunkstore",
		Short: "Columnar time-indexed chunk store",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the store until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			memLimitFlag, _ := cmd.Flags().GetString("memory-limit")
			gcInterval, _ := cmd.Flags().GetDuration("gc-interval")
			archiveBackend, _ := cmd.Flags().GetString("archive-backend")

			limit, err := memlimit.Parse(memLimitFlag)
			if err != nil {
				return fmt.Errorf("parse memory-limit: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return run(ctx, logger, limit, gcInterval, archiveBackend)
		},
	}
	runCmd.Flags().String("memory-limit", "unlimited", "store byte budget: \"unlimited\", a percentage (\"50%\"), or an absolute size (\"4GiB\")")
	runCmd.Flags().Duration("gc-interval", time.Minute, "interval between garbage-collection sweeps")
	runCmd.Flags().String("archive-backend", "none", "cold-tier archive backend: none, s3, azure, gcs")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the resolved memory limit and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			memLimitFlag, _ := cmd.Flags().GetString("memory-limit")
			limit, err := memlimit.Parse(memLimitFlag)
			if err != nil {
				return fmt.Errorf("parse memory-limit: %w", err)
			}
			fmt.Printf("resolved budget: %s (%d bytes)\n", limit, limit.AsBytes())
			return nil
		},
	}
	statsCmd.Flags().String("memory-limit", "unlimited", "store byte budget")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(runCmd, statsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, limit memlimit.Limit, gcInterval time.Duration, archiveBackend string) error {
	logger.Info("starting chunk store", "memory_limit", limit, "gc_interval", gcInterval, "archive_backend", archiveBackend)

	budget := uint64(0)
	if limit.IsLimited() {
		budget = limit.AsBytes()
	}

	s := store.New(store.Config{
		CompactionPolicy: chunk.DefaultCompactionPolicy(),
		EvictionPolicy:   chunk.HottestEntityFirstPolicy{},
		Budget:           budget,
		Logger:           logger,
	})

	unsubscribe := s.Subscribe(func(ev store.Event) {
		logger.Debug("store event", "kind", ev.Kind, "entity", ev.Entity)
	})
	defer unsubscribe()

	backend, err := newArchiveBackend(ctx, archiveBackend)
	if err != nil {
		return fmt.Errorf("configure archive backend: %w", err)
	}
	if backend != nil {
		logger.Info("archive backend configured", "kind", archiveBackend)
	}

	scheduler, err := store.NewGCScheduler(s, gcInterval, logger)
	if err != nil {
		return fmt.Errorf("create gc scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("gc scheduler stop error", "error", err)
		}
	}()

	logger.Info("chunk store running")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
