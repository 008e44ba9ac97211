package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
)

type stubHandler struct{ t string }

func (s *stubHandler) Type() string { return s.t }
func (s *stubHandler) Run(ctx context.Context, job *domain.Job, cfg *config.RunConfig) error {
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubHandler{t: "comparippson"}))

	h, ok := reg.Get("comparippson")
	require.True(t, ok)
	assert.Equal(t, "comparippson", h.Type())

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubHandler{t: "comparippson"}))
	assert.Error(t, reg.Register(&stubHandler{t: "comparippson"}))
}

func TestRegistry_RejectsEmptyType(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(&stubHandler{t: ""}))
	assert.Error(t, reg.Register(nil))
}
