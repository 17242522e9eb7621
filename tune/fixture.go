package tune

import (
	"errors"
	"fmt"
)

// buildFixtureArtifact builds a constant two-profile artifact with known
// exact and interpolated timings, used to validate the estimator and
// selector. Also exercised by the `mulmat-tune test` subcommand (see cmd/test.go)
// as a fast, no-hardware smoke check.
func buildFixtureArtifact() *Artifact {
	shapes := []Shape{{N: 4096, K: 4096}}
	layout := [][numStages]StageConf{
		{ // profile 0: CpuOnly-shaped — SingleNoWait, AllParallel, Absent
			{Backend: BackendCpu, Concurrency: SingleNoWait},
			{Backend: BackendCpu, Concurrency: AllParallel},
			AbsentConf,
		},
		{ // profile 1: BLAS-shaped — AllParallel, SingleWait, Absent
			{Backend: BackendCpu, Concurrency: AllParallel},
			{Backend: BackendCublas, Concurrency: SingleWait},
			AbsentConf,
		},
	}

	a, err := NewArtifact("fixture", "Q4_0", BackendCublas, "CUBLAS", 8, 2, shapes, layout)
	if err != nil {
		panic(fmt.Sprintf("tune: buildFixtureArtifact: %v", err))
	}

	a.SetEntry(0, 0, 0, StagesTime{10, 20, 0}) // M=8, profile 0
	a.SetEntry(0, 1, 0, StagesTime{50, 60, 0}) // M=16, profile 0
	a.SetEntry(0, 0, 1, StagesTime{30, 40, 0}) // M=8, profile 1
	a.SetEntry(0, 1, 1, StagesTime{70, 80, 0}) // M=16, profile 1

	return a
}

// fixtureCheck is one assertion run by RunFixtureChecks.
type fixtureCheck struct {
	name string
	run  func(a *Artifact) error
}

var fixtureChecks = []fixtureCheck{
	{
		name: "exact grid hit, CPU profile, nth=1",
		run: func(a *Artifact) error {
			return expectEstimate(a, 8, 4096, 4096, 1, 0, 30)
		},
	},
	{
		name: "exact grid hit, CPU profile, nth=2",
		run: func(a *Artifact) error {
			return expectEstimate(a, 16, 4096, 4096, 2, 0, 80)
		},
	},
	{
		name: "interpolation, BLAS profile, nth=1",
		run: func(a *Artifact) error {
			return expectEstimate(a, 12, 4096, 4096, 1, 1, 110)
		},
	},
	{
		name: "interpolation, BLAS profile, nth=2",
		run: func(a *Artifact) error {
			return expectEstimate(a, 12, 4096, 4096, 2, 1, 85)
		},
	},
	{
		name: "out of range below grid",
		run: func(a *Artifact) error {
			return expectOutOfRange(a, 7, 4096, 4096, 1, 0)
		},
	},
	{
		name: "out of range above grid",
		run: func(a *Artifact) error {
			return expectOutOfRange(a, 17, 4096, 4096, 1, 0)
		},
	},
	{
		name: "selector tie-break favors lower index",
		run: func(a *Artifact) error {
			tied, err := NewArtifact("fixture-tie", "Q4_0", BackendCublas, "CUBLAS", 8, 2, a.Shapes, a.ProfileLayout)
			if err != nil {
				return err
			}
			tied.SetEntry(0, 0, 0, StagesTime{50, 50, 0})
			tied.SetEntry(0, 1, 0, StagesTime{50, 50, 0})
			tied.SetEntry(0, 0, 1, StagesTime{100, 0, 0})
			tied.SetEntry(0, 1, 1, StagesTime{100, 0, 0})
			stats, err := Select(tied, 8, 4096, 4096, 1)
			if err != nil {
				return err
			}
			if stats.Best != 0 {
				return fmt.Errorf("tie-break: want profile 0, got %d", stats.Best)
			}
			return nil
		},
	},
	{
		name: "selector extrapolation below grid prefers CpuOnly",
		run: func(a *Artifact) error {
			stats, err := Select(a, 2, 4096, 4096, 1)
			if err != nil {
				return err
			}
			if stats.Best != 0 {
				return fmt.Errorf("small-M extrapolation: want profile 0 (CpuOnly), got %d", stats.Best)
			}
			return nil
		},
	},
	{
		name: "selector extrapolation above grid prefers BLAS",
		run: func(a *Artifact) error {
			stats, err := Select(a, 9999, 4096, 4096, 1)
			if err != nil {
				return err
			}
			if stats.Best != 1 {
				return fmt.Errorf("large-M extrapolation: want profile 1 (BLAS), got %d", stats.Best)
			}
			return nil
		},
	},
}

func expectEstimate(a *Artifact, m, n, k, nth, profileIdx int, want int64) error {
	got, err := Estimate(a, m, n, k, nth, profileIdx)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("Estimate(m=%d, nth=%d, profile=%d): got %d, want %d", m, nth, profileIdx, got, want)
	}
	return nil
}

func expectOutOfRange(a *Artifact, m, n, k, nth, profileIdx int) error {
	_, err := Estimate(a, m, n, k, nth, profileIdx)
	if err == nil {
		return fmt.Errorf("Estimate(m=%d): want ErrOutOfRange, got nil error", m)
	}
	if !errors.Is(err, ErrOutOfRange) {
		return fmt.Errorf("Estimate(m=%d): want ErrOutOfRange, got %v", m, err)
	}
	return nil
}

// RunFixtureChecks runs every fixture check against the constant in-memory
// artifact and returns the first failure, or nil if all pass. It backs
// both `go test ./tune` and the `mulmat-tune test` CLI subcommand, so the same
// checks are reachable with or without the Go toolchain.
func RunFixtureChecks() error {
	a := buildFixtureArtifact()
	for _, c := range fixtureChecks {
		if err := c.run(a); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}
