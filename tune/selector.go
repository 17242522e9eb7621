package tune

import "errors"

// smallMatrixThreshold is the "big enough to benefit from a BLAS/device
// dispatch" heuristic kept for behavioral parity though it is not
// modelled: the source's extrapolation fallback used 32 most often across
// its drafts, so that is what we keep. This is a heuristic, not a fitted
// constant — do not tune it.
const smallMatrixThreshold = 32

// tieBreakEpsilonMicros is the tolerance within which two profile totals
// are considered tied; ties favor the lower-indexed (catalog-order, CPU-
// biased) profile for selection stability.
const tieBreakEpsilonMicros = 1

// ProfileTime is one profile's estimated total time, or the fact that it
// was out of range.
type ProfileTime struct {
	ProfileIdx  int
	TotalMicros int64
	OutOfRange  bool
}

// TimeStats is the result of evaluating every profile in the catalog for
// one (M, N, K, nth): a total time per profile, plus the index of the
// profile expected to be fastest.
type TimeStats struct {
	Profiles []ProfileTime
	Best     int
}

// Select evaluates every profile in the artifact via Estimate and returns
// the one expected to be fastest. If Estimate returns
// out-of-range for every profile, Select falls back to the simple
// extrapolation rule: small M always prefers CpuOnly; large, big-enough M
// prefers the BLAS-capable profile; otherwise CpuOnly.
func Select(a *Artifact, m, n, k, nth int) (TimeStats, error) {
	stats := TimeStats{Profiles: make([]ProfileTime, a.NProfiles())}

	allOutOfRange := true
	bestIdx := -1
	var bestTotal int64

	for p := 0; p < a.NProfiles(); p++ {
		total, err := Estimate(a, m, n, k, nth, p)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				stats.Profiles[p] = ProfileTime{ProfileIdx: p, OutOfRange: true}
				continue
			}
			return TimeStats{}, err
		}
		allOutOfRange = false
		stats.Profiles[p] = ProfileTime{ProfileIdx: p, TotalMicros: total}

		if bestIdx == -1 || total < bestTotal-tieBreakEpsilonMicros {
			bestIdx, bestTotal = p, total
		}
		// within tieBreakEpsilonMicros of the current best: keep the
		// lower-indexed (already-chosen) profile, so no update here.
	}

	if allOutOfRange {
		bestIdx = extrapolate(a, m, n, k)
	}

	stats.Best = bestIdx
	return stats, nil
}

// extrapolate implements the out-of-range fallback used when every
// profile estimate was out of range.
func extrapolate(a *Artifact, m, n, k int) int {
	cpuOnly := a.profileIndexByName(ProfileCpuOnly)
	blasProfile := a.firstBlasProfileIndex()

	if m < a.MStep {
		return cpuOnly
	}
	if m > a.MStep*a.MNum && m >= smallMatrixThreshold && n >= smallMatrixThreshold && k >= smallMatrixThreshold {
		if blasProfile >= 0 {
			return blasProfile
		}
		return cpuOnly
	}
	return cpuOnly
}

// profileIndexByName finds the index of the first profile whose Stages
// layout looks like CpuOnly: its Compute stage is AllParallel on the CPU
// (Init and Finalize are not inspected). The artifact stores only StageConf
// layouts, not profile names,
// so this recognizes CpuOnly structurally rather than by name — see
// firstBlasProfileIndex for the symmetric BLAS-profile lookup.
func (a *Artifact) profileIndexByName(name string) int {
	for p, layout := range a.ProfileLayout {
		if name == ProfileCpuOnly && layout[StageCompute].Backend == BackendCpu && layout[StageCompute].Concurrency == AllParallel {
			return p
		}
	}
	// Fall back to profile 0, which is always CpuOnly by catalog
	// construction (NewCatalog always appends CpuOnly first).
	if len(a.ProfileLayout) > 0 {
		return 0
	}
	return -1
}

// firstBlasProfileIndex returns the index of the first profile whose
// Compute stage backend is not Cpu (the "BLAS profile" in the
// glossary), or -1 if none.
func (a *Artifact) firstBlasProfileIndex() int {
	for p, layout := range a.ProfileLayout {
		if layout[StageCompute].Backend != BackendCpu && layout[StageCompute].Backend != BackendUnknown {
			return p
		}
	}
	return -1
}
