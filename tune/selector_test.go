package tune

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectTieBreakPrefersLowerIndex(t *testing.T) {
	shapes := []Shape{{N: 4096, K: 4096}}
	layout := [][numStages]StageConf{
		{
			{Backend: BackendCpu, Concurrency: SingleNoWait},
			{Backend: BackendCpu, Concurrency: AllParallel},
			AbsentConf,
		},
		{
			{Backend: BackendCpu, Concurrency: AllParallel},
			{Backend: BackendCublas, Concurrency: SingleWait},
			AbsentConf,
		},
	}
	a, err := NewArtifact("7B", "Q4_0", BackendCublas, "CUBLAS", 8, 2, shapes, layout)
	require.NoError(t, err)

	a.SetEntry(0, 0, 0, StagesTime{50, 50, 0})
	a.SetEntry(0, 1, 0, StagesTime{50, 50, 0})
	a.SetEntry(0, 0, 1, StagesTime{100, 0, 0})
	a.SetEntry(0, 1, 1, StagesTime{100, 0, 0})

	stats, err := Select(a, 8, 4096, 4096, 1)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Best)
}

func TestSelectExtrapolation(t *testing.T) {
	a := cpuAndBlasArtifact(t)

	stats, err := Select(a, 2, 4096, 4096, 1)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Best, "small M below m_step must prefer CpuOnly")

	stats, err = Select(a, 9999, 4096, 4096, 1)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Best, "large M above the grid, with N,K >= 32, must prefer the BLAS profile")
}

func TestSelectExtrapolationSmallMatrixStaysCPU(t *testing.T) {
	shapes := []Shape{{N: 8, K: 8}}
	layout := [][numStages]StageConf{
		{
			{Backend: BackendCpu, Concurrency: SingleNoWait},
			{Backend: BackendCpu, Concurrency: AllParallel},
			AbsentConf,
		},
		{
			{Backend: BackendCpu, Concurrency: AllParallel},
			{Backend: BackendCublas, Concurrency: SingleWait},
			AbsentConf,
		},
	}
	a, err := NewArtifact("7B", "Q4_0", BackendCublas, "CUBLAS", 8, 2, shapes, layout)
	require.NoError(t, err)
	a.SetEntry(0, 0, 0, StagesTime{1, 1, 0})
	a.SetEntry(0, 1, 0, StagesTime{1, 1, 0})
	a.SetEntry(0, 0, 1, StagesTime{1, 1, 0})
	a.SetEntry(0, 1, 1, StagesTime{1, 1, 0})

	stats, err := Select(a, 9999, 8, 8, 1)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Best, "matrix smaller than the 32-threshold must still prefer CpuOnly")
}
