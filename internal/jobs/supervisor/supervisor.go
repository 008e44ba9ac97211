// Package supervisor owns the control row and reconciles the live
// dispatcher pool against RunConfig.MaxJobs (spec §4.3).
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/antismash/asdb-jobs/internal/buildinfo"
	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/data/repos/control"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/dispatcher"
	"github.com/antismash/asdb-jobs/internal/metrics"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// controlTickInterval matches the dispatcher's own poll cadence (spec
// §6 CONTROL_UPDATE_SLEEP) so a drain request surfaces within one tick
// on either side.
const controlTickInterval = 5 * time.Second

type Supervisor struct {
	cfg     *config.RunConfig
	control control.ControlGateway
	disp    *dispatcher.Dispatcher
	metrics *metrics.Collector
	log     *logger.Logger
}

func New(cfg *config.RunConfig, controlGW control.ControlGateway, disp *dispatcher.Dispatcher, collector *metrics.Collector, baseLog *logger.Logger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		control: controlGW,
		disp:    disp,
		metrics: collector,
		log:     baseLog.With("component", "Supervisor"),
	}
}

// Run upserts the control row, reconciles the dispatcher pool against
// it on every tick, and deletes the row once every dispatcher has
// drained (spec §4.3). It returns once the pool has drained or ctx is
// cancelled. A dispatcher that exits with an error is replaced on the
// next tick; the first such error is returned when Run finishes.
func (s *Supervisor) Run(ctx context.Context) error {
	ctrl := &domain.Control{
		Name:          s.cfg.Name,
		Status:        "running",
		StopScheduled: false,
		Version:       buildinfo.Version(),
	}
	if err := s.control.Upsert(dbctx.Context{Ctx: ctx}, ctrl); err != nil {
		return err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	spawn := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.disp.Run(ctx); err != nil {
				s.log.Error("dispatcher exited with error", "error", err)
				recordErr(err)
			}
		}()
	}

	ticker := time.NewTicker(controlTickInterval)
	defer ticker.Stop()

loop:
	for {
		if err := s.cfg.ReadFile(s.log); err != nil {
			s.log.Warn("failed to reload config file, keeping last known values", "error", err)
		}

		current, err := s.control.Get(dbctx.Context{Ctx: ctx}, s.cfg.Name)
		if err != nil {
			s.log.Warn("failed to re-read control row, assuming no drain requested", "error", err)
		} else if current.StopScheduled {
			s.cfg.SetMaxJobs(0)
		}

		for s.cfg.WantMoreJobs() {
			s.log.Debug("starting an extra dispatcher")
			spawn()
		}

		s.metrics.SetDispatcherPoolSize(s.cfg.MaxJobs())
		s.metrics.SetRunningJobs(s.cfg.RunningJobs())

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		if s.cfg.RunningJobs() == 0 && !s.cfg.WantMoreJobs() {
			break loop
		}
	}

	wg.Wait()

	if err := s.control.Delete(dbctx.Context{Ctx: context.Background()}, s.cfg.Name); err != nil {
		s.log.Warn("failed to delete control row on exit", "error", err)
	}

	return firstErr
}
