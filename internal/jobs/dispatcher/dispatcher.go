// Package dispatcher runs the per-goroutine claim/execute/commit loop
// (spec §4.2). The supervisor spawns one Dispatcher per pool slot; each
// is independent and only coordinates with the others through the
// database (row-lock-skip-locked claims, optimistic-concurrency
// commits) and the shared RunConfig counters.
package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/data/repos/jobs"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/runtime"
	"github.com/antismash/asdb-jobs/internal/metrics"
	"github.com/antismash/asdb-jobs/internal/notify"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// controlTickInterval is how long a dispatcher naps when the queue is
// empty before re-checking config and trying again (spec §6
// CONTROL_UPDATE_SLEEP).
const controlTickInterval = 5 * time.Second

type Dispatcher struct {
	cfg      *config.RunConfig
	queue    jobs.QueueGateway
	registry *runtime.Registry
	notify   notify.JobNotifier
	metrics  *metrics.Collector
	log      *logger.Logger
}

func New(cfg *config.RunConfig, queue jobs.QueueGateway, registry *runtime.Registry, notifier notify.JobNotifier, collector *metrics.Collector, baseLog *logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		queue:    queue,
		registry: registry,
		notify:   notifier,
		metrics:  collector,
		log:      baseLog.With("component", "Dispatcher"),
	}
}

// Run is the body of one pool slot (spec §4.2). It returns when the
// supervisor has asked for the pool to shrink, or when ctx is
// cancelled. A non-job-class error from a handler aborts the loop
// immediately: the supervisor will notice running_jobs dropped and
// spawn a replacement on its next tick.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.cfg.Up()
	defer d.cfg.Down()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.cfg.ReadFile(d.log); err != nil {
			d.log.Warn("failed to reload config file, keeping last known values", "error", err)
		}

		if d.cfg.WantLessJobs() {
			d.log.Debug("pool shrinking, dispatcher exiting")
			return nil
		}

		job, err := d.claim(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(controlTickInterval):
			}
			continue
		}

		runID := uuid.NewString()
		d.metrics.RecordClaim()
		d.notify.JobClaimed(ctx, runID, job)

		if err := d.handle(ctx, runID, job); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) claim(ctx context.Context) (*domain.Job, error) {
	dbc := dbctx.Context{Ctx: ctx}
	return d.queue.ClaimNext(dbc, d.cfg.Name)
}

// handle runs job to completion and commits the outcome (spec §4.6
// step 5). Job-class errors from the registry miss or the handler are
// turned into a terminal failed commit here, mirroring the
// dispatch()/ASDBJobsError boundary in the original implementation.
// runID correlates this claim's log lines and notify events; it has no
// meaning beyond this one claim-to-commit cycle.
func (d *Dispatcher) handle(ctx context.Context, runID string, job *domain.Job) error {
	log := d.log.With("run_id", runID, "job_id", job.ID, "jobtype", job.JobType)
	log.Debug("handling job")
	start := time.Now()

	h, ok := d.registry.Get(job.JobType)
	if !ok {
		d.failTerminal(job, joberr.InvalidJobType(job.JobType))
	} else if err := h.Run(ctx, job, d.cfg); err != nil {
		if !joberr.IsJobClass(err) {
			return err
		}
		d.failTerminal(job, err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := d.queue.Commit(dbc, job); err != nil {
		return err
	}

	d.metrics.RecordCompletion(job.Status, time.Since(start).Seconds())
	if job.Status == domain.StatusDone {
		d.notify.JobDone(ctx, runID, job)
	} else {
		d.notify.JobFailed(ctx, runID, job, jobErrorText(job))
	}

	log.Debug("done with job", "status", job.Status)
	return nil
}

func (d *Dispatcher) failTerminal(job *domain.Job, err error) {
	job.Status = domain.StatusFailed
	job.Results = marshalFailure(err.Error())
}
