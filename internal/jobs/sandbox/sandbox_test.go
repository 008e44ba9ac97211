package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antismash/asdb-jobs/internal/data/repos/testutil"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
)

func TestValidateContainerName(t *testing.T) {
	assert.NoError(t, ValidateContainerName("job-123"))
	assert.NoError(t, ValidateContainerName("a"))
	err := ValidateContainerName("")
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
	assert.Error(t, ValidateContainerName("-leading-dash"))
	assert.Error(t, ValidateContainerName("has a space"))
}

func TestRun_Success(t *testing.T) {
	log := testutil.Logger(t)
	outcome, stdout, _, err := Run(context.Background(), log, []string{"cat"}, []byte("hello\nworld\n"), "test-success", time.Second)
	require.NoError(t, err)
	assert.Equal(t, Success, outcome)
	assert.Equal(t, []string{"hello", "world"}, stdout)
}

func TestRun_Failure(t *testing.T) {
	log := testutil.Logger(t)
	outcome, _, _, err := Run(context.Background(), log, []string{"sh", "-c", "exit 1"}, nil, "test-failure", time.Second)
	require.NoError(t, err)
	assert.Equal(t, Failure, outcome)
}

func TestRun_Timeout(t *testing.T) {
	log := testutil.Logger(t)
	outcome, _, stderr, err := Run(context.Background(), log, []string{"sh", "-c", "sleep 5"}, nil, "test-timeout", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Timeout, outcome)
	assert.Equal(t, []string{"Runtime exceeded"}, stderr)
}
