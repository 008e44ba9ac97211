package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/antismash/asdb-jobs/internal/data/repos/testutil"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
)

func newJob(id, jobtype string) *domain.Job {
	return &domain.Job{
		ID:            id,
		JobType:       jobtype,
		Status:        domain.StatusPending,
		SubmittedDate: time.Now().UTC(),
		Data:          datatypes.JSON([]byte(`{"name":"q1","sequence":"MAGIC"}`)),
		Results:       datatypes.JSON([]byte(`{}`)),
		Version:       0,
	}
}

func TestQueueGateway_ClaimNext_SingleClaim(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	gw := NewQueueGateway(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newJob("claim-1", domain.JobTypeComparippson)
	require.NoError(t, tx.Create(job).Error)

	claimed, err := gw.ClaimNext(dbc, "runner-a")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, domain.StatusRunning, claimed.Status)
	assert.Equal(t, "runner-a", claimed.Runner)
	assert.Equal(t, 1, claimed.Version)

	again, err := gw.ClaimNext(dbc, "runner-b")
	require.NoError(t, err)
	assert.Nil(t, again, "no pending job left, claim must return nil")
}

func TestQueueGateway_ClaimNext_Empty(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	gw := NewQueueGateway(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	claimed, err := gw.ClaimNext(dbc, "runner-a")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestQueueGateway_Commit_HappyPath(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	gw := NewQueueGateway(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newJob("commit-1", domain.JobTypeComparippson)
	require.NoError(t, tx.Create(job).Error)

	claimed, err := gw.ClaimNext(dbc, "runner-a")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	claimed.Status = domain.StatusDone
	claimed.Results = datatypes.JSON([]byte(`{"hits":[]}`))
	require.NoError(t, gw.Commit(dbc, claimed))
	assert.Equal(t, 2, claimed.Version)

	stored, err := gw.GetByID(dbc, "commit-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusDone, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestQueueGateway_Commit_ConflictOnStaleVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	gw := NewQueueGateway(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newJob("commit-2", domain.JobTypeComparippson)
	require.NoError(t, tx.Create(job).Error)

	claimed, err := gw.ClaimNext(dbc, "runner-a")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	stale := *claimed
	stale.Version = 0 // pretend we never saw the claim's version bump

	claimed.Status = domain.StatusDone
	require.NoError(t, gw.Commit(dbc, claimed))

	stale.Status = domain.StatusFailed
	err = gw.Commit(dbc, &stale)
	assert.ErrorIs(t, err, joberr.ErrConflict)
}

func TestQueueGateway_Commit_VanishedJobIsHardError(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	gw := NewQueueGateway(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	ghost := newJob("never-existed", domain.JobTypeComparippson)
	ghost.Status = domain.StatusFailed

	err := gw.Commit(dbc, ghost)
	assert.ErrorIs(t, err, joberr.ErrJobVanished)
}
