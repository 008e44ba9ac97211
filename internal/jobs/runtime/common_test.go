package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
)

func TestPayload_HappyPath(t *testing.T) {
	job := &domain.Job{Data: []byte(`{"name":"q1","sequence":"MAGIC"}`)}
	data, fasta, err := payload(job)
	require.NoError(t, err)
	assert.Equal(t, "q1", data.Name)
	assert.Equal(t, ">q1\nMAGIC", fasta)
}

func TestPayload_MissingFields(t *testing.T) {
	job := &domain.Job{Data: []byte(`{"name":"q1"}`)}
	_, _, err := payload(job)
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
}

func TestPayload_InvalidJSON(t *testing.T) {
	job := &domain.Job{Data: []byte(`not json`)}
	_, _, err := payload(job)
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
}
