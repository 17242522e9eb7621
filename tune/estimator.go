package tune

import (
	"fmt"
	"math"
)

// Estimate predicts the total microseconds for one (M, N, K, nth) on a
// given profile. It is a pure function: callers may call
// it concurrently from any number of goroutines against the same Artifact.
//
// Returns ErrOutOfRange (wrapped) if (N,K) is not a measured shape, or if M
// falls outside [m_step, m_step*m_num].
func Estimate(a *Artifact, m, n, k, nth, profileIdx int) (int64, error) {
	if nth < 1 {
		return 0, fmt.Errorf("tune: Estimate: nth must be >= 1, got %d", nth)
	}
	if profileIdx < 0 || profileIdx >= a.NProfiles() {
		return 0, fmt.Errorf("tune: Estimate: profile index %d out of range [0,%d)", profileIdx, a.NProfiles())
	}

	shapeIdx := a.ShapeIndex(n, k)
	if shapeIdx < 0 {
		return 0, fmt.Errorf("%w: no shape (N=%d, K=%d) in artifact", ErrOutOfRange, n, k)
	}
	if m < a.MStep || m > a.MStep*a.MNum {
		return 0, fmt.Errorf("%w: M=%d outside [%d, %d]", ErrOutOfRange, m, a.MStep, a.MStep*a.MNum)
	}

	layout := a.ProfileLayout[profileIdx]
	loIdx, hiIdx := bracketMIndex(a.MStep, a.MNum, m)

	lo := a.Entry(shapeIdx, loIdx, profileIdx)
	if loIdx == hiIdx {
		return sumExact(layout, lo, nth), nil
	}

	hi := a.Entry(shapeIdx, hiIdx, profileIdx)
	loM := a.MAt(loIdx)
	hiM := a.MAt(hiIdx)
	x := float64(m-loM) / float64(hiM-loM)

	var total float64
	for s := 0; s < numStages; s++ {
		if layout[s].Concurrency == Absent {
			continue
		}
		t := lerp(float64(lo[s]), float64(hi[s]), x)
		if layout[s].Concurrency.ScalesWithNth() {
			t /= float64(nth)
		}
		total += t
	}
	return int64(math.Round(total)), nil
}

// sumExact sums the recorded per-stage times for an exact grid hit.
// AllParallel stages use integer division by nth so the result stays exact
// at grid points; all other stages are used as-is.
func sumExact(layout [numStages]StageConf, e StagesTime, nth int) int64 {
	var total int64
	for s := 0; s < numStages; s++ {
		if layout[s].Concurrency == Absent {
			continue
		}
		t := int64(e[s])
		if layout[s].Concurrency.ScalesWithNth() {
			t /= int64(nth)
		}
		total += t
	}
	return total
}
