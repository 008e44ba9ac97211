package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/data/repos/jobs"
	"github.com/antismash/asdb-jobs/internal/data/repos/testutil"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/metrics"
	"github.com/antismash/asdb-jobs/internal/notify"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
	"github.com/antismash/asdb-jobs/internal/jobs/runtime"
)

type successHandler struct{}

func (successHandler) Type() string { return domain.JobTypeComparippson }
func (successHandler) Run(ctx context.Context, job *domain.Job, cfg *config.RunConfig) error {
	job.Status = domain.StatusDone
	job.Results = datatypes.JSON([]byte(`{"hits":[]}`))
	return nil
}

func TestDispatcher_ClaimsRunsCommitsThenShrinks(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)

	// The dispatcher always talks to the shared pool directly (it has
	// no dbctx to inject a test transaction into, by design), so this
	// test commits a real row and removes it on cleanup instead of
	// relying on testutil.Tx's rollback.
	queue := jobs.NewQueueGateway(db, log)
	job := &domain.Job{
		ID:            "dispatcher-1",
		JobType:       domain.JobTypeComparippson,
		Status:        domain.StatusPending,
		SubmittedDate: time.Now().UTC(),
		Data:          datatypes.JSON([]byte(`{"name":"q","sequence":"M"}`)),
		Results:       datatypes.JSON([]byte(`{}`)),
	}
	require.NoError(t, db.Create(job).Error)
	t.Cleanup(func() {
		db.Where("id = ?", "dispatcher-1").Delete(&domain.Job{})
	})

	reg := runtime.NewRegistry()
	require.NoError(t, reg.Register(successHandler{}))

	cfg := config.New("", "", "", "runner-x", config.ConnParams{}, 1, 1)
	d := New(cfg, queue, reg, notify.NewNoop(), metrics.NewCollector(), log)

	// Longer than one controlTickInterval, so the dispatcher wakes from its
	// empty-queue nap and reaches the shrink check before ctx expires.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// force the dispatcher to shrink after it handles the one pending job
	go func() {
		time.Sleep(200 * time.Millisecond)
		cfg.SetMaxJobs(0)
	}()

	err := d.Run(ctx)
	require.NoError(t, err)
	assert.NoError(t, ctx.Err(), "dispatcher must exit by shrinking, not by context timeout")

	stored, err := queue.GetByID(dbctx.Context{Ctx: context.Background()}, "dispatcher-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusDone, stored.Status)
}
