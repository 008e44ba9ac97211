package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/data/repos/control"
	"github.com/antismash/asdb-jobs/internal/data/repos/jobs"
	"github.com/antismash/asdb-jobs/internal/data/repos/testutil"
	"github.com/antismash/asdb-jobs/internal/jobs/dispatcher"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/runtime"
	"github.com/antismash/asdb-jobs/internal/metrics"
	"github.com/antismash/asdb-jobs/internal/notify"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
)

func TestSupervisor_UpsertsAndDeletesControlRowOnCleanDrain(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)

	controlGW := control.NewControlGateway(db, log)
	queue := jobs.NewQueueGateway(db, log)
	reg := runtime.NewRegistry()
	collector := metrics.NewCollector()

	cfg := config.New("", "", "", "supervisor-test", config.ConnParams{}, 1, 0)
	disp := dispatcher.New(cfg, queue, reg, notify.NewNoop(), collector, log)
	sup := New(cfg, controlGW, disp, collector, log)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	err := sup.Run(ctx)
	require.NoError(t, err)

	_, getErr := controlGW.Get(dbctx.Context{Ctx: context.Background()}, "supervisor-test")
	assert.ErrorIs(t, getErr, joberr.ErrControlNotFound)
}
