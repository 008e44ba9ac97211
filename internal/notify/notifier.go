// Package notify publishes best-effort job lifecycle events. Delivery
// is not correctness-critical: the queue and control rows are the
// source of truth, this is purely an observability side channel (spec
// §5 Design Notes).
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// JobNotifier publishes job lifecycle events. runID correlates the
// three calls for a single claim-to-commit cycle across log lines and
// published events (a job id can be reused once the row's terminal, a
// runID never is).
type JobNotifier interface {
	JobClaimed(ctx context.Context, runID string, job *domain.Job)
	JobDone(ctx context.Context, runID string, job *domain.Job)
	JobFailed(ctx context.Context, runID string, job *domain.Job, errText string)
}

// noop is used when no Redis address is configured; every call is a
// silent nop so callers never special-case a missing notifier.
type noop struct{}

func NewNoop() JobNotifier                                             { return noop{} }
func (noop) JobClaimed(context.Context, string, *domain.Job)           {}
func (noop) JobDone(context.Context, string, *domain.Job)              {}
func (noop) JobFailed(context.Context, string, *domain.Job, string)    {}

type redisNotifier struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedis builds a notifier that publishes to a single channel named
// after the runner, so operators can subscribe per-runner.
func NewRedis(client *redis.Client, runnerName string, baseLog *logger.Logger) JobNotifier {
	return &redisNotifier{
		client:  client,
		channel: "asdb-jobs:" + runnerName,
		log:     baseLog.With("component", "JobNotifier"),
	}
}

type event struct {
	Event   string `json:"event"`
	RunID   string `json:"run_id"`
	JobID   string `json:"job_id"`
	JobType string `json:"jobtype"`
	Error   string `json:"error,omitempty"`
}

func (n *redisNotifier) publish(ctx context.Context, e event) {
	raw, err := json.Marshal(e)
	if err != nil {
		n.log.Warn("failed to marshal job event, dropping", "error", err)
		return
	}
	if err := n.client.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("failed to publish job event, dropping", "error", err, "event", e.Event, "job_id", e.JobID)
	}
}

func (n *redisNotifier) JobClaimed(ctx context.Context, runID string, job *domain.Job) {
	n.publish(ctx, event{Event: "job.claimed", RunID: runID, JobID: job.ID, JobType: job.JobType})
}

func (n *redisNotifier) JobDone(ctx context.Context, runID string, job *domain.Job) {
	n.publish(ctx, event{Event: "job.done", RunID: runID, JobID: job.ID, JobType: job.JobType})
}

func (n *redisNotifier) JobFailed(ctx context.Context, runID string, job *domain.Job, errText string) {
	n.publish(ctx, event{Event: "job.failed", RunID: runID, JobID: job.ID, JobType: job.JobType, Error: errText})
}
