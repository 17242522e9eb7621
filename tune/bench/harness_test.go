package bench

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/llama.cpp/tune"
)

// fakeKernel returns n*k nanoseconds per call, optionally failing on a
// chosen stage to exercise the harness's abort path.
type fakeKernel struct {
	calls      int
	failOn     *tune.Stage
	failErr    error
}

func (k *fakeKernel) Invoke(ctx context.Context, backend tune.Backend, stage tune.Stage, buf []float32, n, kk, m int) (time.Duration, error) {
	k.calls++
	if k.failOn != nil && stage == *k.failOn {
		return 0, k.failErr
	}
	return time.Duration(n*kk) * time.Nanosecond, nil
}

func testCatalog(t *testing.T) tune.Catalog {
	t.Helper()
	cat, err := tune.NewCatalog(tune.BackendCublas)
	require.NoError(t, err)
	return cat
}

func TestHarnessRunFillsEveryEntry(t *testing.T) {
	k := &fakeKernel{}
	h := NewHarness(k, &bytes.Buffer{})

	shapes := []tune.Shape{{N: 64, K: 64}, {N: 128, K: 128}}
	cat := testCatalog(t)

	a, err := h.Run(context.Background(), "7B", "Q4_0", tune.BackendCublas, "CUBLAS", 8, 2, shapes, cat)
	require.NoError(t, err)

	assert.Equal(t, 2, len(a.Shapes))
	assert.Equal(t, cat.NProfiles(), a.NProfiles())

	for shapeIdx := range shapes {
		for mIdx := 0; mIdx < 2; mIdx++ {
			for p := 0; p < a.NProfiles(); p++ {
				e := a.Entry(shapeIdx, mIdx, p)
				layout := cat.Profiles[p].Stages
				for s := 0; s < 3; s++ {
					if layout[s].Concurrency == tune.Absent {
						assert.EqualValues(t, 0, e[s])
					} else {
						assert.Greater(t, e[s], int32(0))
					}
				}
			}
		}
	}
}

func TestHarnessAbortsOnKernelError(t *testing.T) {
	failStage := tune.StageCompute
	k := &fakeKernel{failOn: &failStage, failErr: errors.New("boom")}
	h := NewHarness(k, nil)

	shapes := []tune.Shape{{N: 16, K: 16}}
	cat := testCatalog(t)

	_, err := h.Run(context.Background(), "7B", "Q4_0", tune.BackendCublas, "CUBLAS", 8, 2, shapes, cat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tune.ErrKernelInvocation))
}

// TestHarnessRecordsNthIndependentBaseline guards against re-threading a
// serving-time worker count into the bench sweep: Invoke has no nth
// parameter, so every recorded stages_time is the kernel's raw single-task
// duration regardless of the stage's StageConcurrency. nth-scaling is
// Estimate's job alone, at serving time.
func TestHarnessRecordsNthIndependentBaseline(t *testing.T) {
	k := &fakeKernel{}
	h := NewHarness(k, nil)

	shapes := []tune.Shape{{N: 1000, K: 1000}}
	cat := testCatalog(t)

	a, err := h.Run(context.Background(), "7B", "Q4_0", tune.BackendCublas, "CUBLAS", 8, 2, shapes, cat)
	require.NoError(t, err)

	want := int32(time.Duration(1000*1000) * time.Nanosecond / time.Microsecond)
	for p := 0; p < a.NProfiles(); p++ {
		e := a.Entry(0, 0, p)
		layout := cat.Profiles[p].Stages
		for s := 0; s < 3; s++ {
			if layout[s].Concurrency != tune.Absent {
				assert.Equal(t, want, e[s], "stage %d of profile %q should record the raw single-task duration", s, cat.Profiles[p].Name)
			}
		}
	}
}

func TestHarnessRejectsOversizedBuffer(t *testing.T) {
	k := &fakeKernel{}
	h := NewHarness(k, nil)

	shapes := []tune.Shape{{N: 1 << 20, K: 1 << 20}}
	cat := testCatalog(t)

	_, err := h.Run(context.Background(), "7B", "Q4_0", tune.BackendCublas, "CUBLAS", 8, 2, shapes, cat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tune.ErrAllocationFailure))
}
