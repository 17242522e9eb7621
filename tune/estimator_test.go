package tune

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpuAndBlasArtifact(t *testing.T) *Artifact {
	t.Helper()
	shapes := []Shape{{N: 4096, K: 4096}}
	layout := [][numStages]StageConf{
		{ // profile 0: CPU
			{Backend: BackendCpu, Concurrency: SingleNoWait},
			{Backend: BackendCpu, Concurrency: AllParallel},
			AbsentConf,
		},
		{ // profile 1: BLAS
			{Backend: BackendCpu, Concurrency: AllParallel},
			{Backend: BackendCublas, Concurrency: SingleWait},
			AbsentConf,
		},
	}
	a, err := NewArtifact("7B", "Q4_0", BackendCublas, "CUBLAS", 8, 2, shapes, layout)
	require.NoError(t, err)

	a.SetEntry(0, 0, 0, StagesTime{10, 20, 0})
	a.SetEntry(0, 1, 0, StagesTime{50, 60, 0})
	a.SetEntry(0, 0, 1, StagesTime{30, 40, 0})
	a.SetEntry(0, 1, 1, StagesTime{70, 80, 0})
	return a
}

func TestEstimateExactGridHitCPUProfile(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	got, err := Estimate(a, 8, 4096, 4096, 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 30, got)

	got, err = Estimate(a, 16, 4096, 4096, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 80, got)
}

func TestEstimateInterpolationBLASProfile(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	got, err := Estimate(a, 12, 4096, 4096, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 110, got)

	got, err = Estimate(a, 12, 4096, 4096, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 85, got)
}

func TestEstimateOutOfRange(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	_, err := Estimate(a, 7, 4096, 4096, 1, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = Estimate(a, 17, 4096, 4096, 1, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = Estimate(a, 8, 1, 1, 1, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange), "unknown shape must be out of range")
}

func TestEstimateInterpolationStaysWithinBounds(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	lo, err := Estimate(a, 8, 4096, 4096, 1, 0)
	require.NoError(t, err)
	hi, err := Estimate(a, 16, 4096, 4096, 1, 0)
	require.NoError(t, err)

	for m := 9; m < 16; m++ {
		mid, err := Estimate(a, m, 4096, 4096, 1, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, mid, lo)
		assert.LessOrEqual(t, mid, hi)
	}
}

func TestEstimateNthScalingMonotonic(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	prev, err := Estimate(a, 16, 4096, 4096, 1, 0)
	require.NoError(t, err)
	for nth := 2; nth <= 8; nth *= 2 {
		cur, err := Estimate(a, 16, 4096, 4096, nth, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, cur, prev, "AllParallel contribution must not increase as nth grows")
		prev = cur
	}
}

func TestEstimateRejectsBadInputs(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	_, err := Estimate(a, 8, 4096, 4096, 0, 0)
	assert.Error(t, err)

	_, err = Estimate(a, 8, 4096, 4096, 1, 99)
	assert.Error(t, err)
}
