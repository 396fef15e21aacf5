package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rerun-io/rerun-sub034/internal/logging"
)

// GCScheduler runs a store's GC sweep on a fixed interval in the
// background, using a single gocron job.
type GCScheduler struct {
	scheduler gocron.Scheduler
	store     *Store
	logger    *slog.Logger
}

// NewGCScheduler creates a scheduler that calls store.GC() every
// interval. Nothing runs until Start is called; Stop shuts it down.
func NewGCScheduler(s *Store, interval time.Duration, logger *slog.Logger) (*GCScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gc scheduler: %w", err)
	}
	logger = logging.Default(logger).With("component", "store-gc-scheduler")

	g := &GCScheduler{scheduler: scheduler, store: s, logger: logger}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(g.sweep),
		gocron.WithName("store-gc-sweep"),
	); err != nil {
		return nil, fmt.Errorf("create gc sweep job: %w", err)
	}

	return g, nil
}

// Start begins running the periodic sweep.
func (g *GCScheduler) Start() {
	g.scheduler.Start()
	g.logger.Info("gc scheduler started")
}

// Stop shuts down the scheduler and waits for any running sweep to finish.
func (g *GCScheduler) Stop() error {
	return g.scheduler.Shutdown()
}

func (g *GCScheduler) sweep() {
	evicted := g.store.GC()
	if len(evicted) == 0 {
		return
	}
	g.logger.Info("gc sweep evicted chunks", "count", len(evicted))
}
