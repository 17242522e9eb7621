package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/llama.cpp/tune"
)

func TestSyntheticKernelDeterministic(t *testing.T) {
	k := NewSyntheticKernel()
	ctx := context.Background()

	d1, err := k.Invoke(ctx, tune.BackendCublas, tune.StageCompute, nil, 4096, 4096, 64)
	require.NoError(t, err)
	d2, err := k.Invoke(ctx, tune.BackendCublas, tune.StageCompute, nil, 4096, 4096, 64)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestSyntheticKernelFasterOnFasterBackend(t *testing.T) {
	k := NewSyntheticKernel()
	ctx := context.Background()

	dCPU, err := k.Invoke(ctx, tune.BackendCpu, tune.StageCompute, nil, 4096, 4096, 64)
	require.NoError(t, err)
	dGPU, err := k.Invoke(ctx, tune.BackendCublas, tune.StageCompute, nil, 4096, 4096, 64)
	require.NoError(t, err)
	assert.Less(t, dGPU, dCPU)
}

func TestSyntheticKernelCanceledContext(t *testing.T) {
	k := NewSyntheticKernel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := k.Invoke(ctx, tune.BackendCpu, tune.StageCompute, nil, 1, 1, 1)
	assert.Error(t, err)
}
