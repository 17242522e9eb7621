package tune

import "fmt"

// CurrentVersion is the artifact format version this package reads and
// writes. Decoders reject any other version rather than best-effort parse
// it; the artifact is cheap enough to re-bench after a format change.
const CurrentVersion = 1

// Artifact is the outermost aggregate: the self-describing, textual record
// of per-profile per-stage timings produced by the benchmark harness
// and consumed by the time estimator.
//
// Lifecycle: created by the tuner, serialized once, loaded at most once per
// process, then immutable for the process's lifetime. Entries, shapes, and
// the profile layout are owned exclusively by the Artifact — callers must
// not mutate a loaded Artifact's slices in place.
type Artifact struct {
	Version    int
	ModelTag   string
	QTypeTag   string
	GPUBackend Backend // Unknown for a CPU-only artifact
	GPUTag     string  // human-readable backend name, e.g. "CUBLAS"

	MStep int
	MNum  int

	Shapes        []Shape
	ProfileLayout [][numStages]StageConf // len == NProfiles

	// Entries is the flat arena holding every (shape, M, profile) timing, indexed by
	// EntryIndex(shapeIdx, mIdx, profileIdx, MNum, NProfiles()).
	Entries []StagesTime
}

// NProfiles returns the number of profiles this artifact was tuned for.
func (a *Artifact) NProfiles() int {
	return len(a.ProfileLayout)
}

// EntryIndex computes the canonical flat index of one (shape, M, profile)
// entry: ((shapeIdx*mNum)+mIdx)*nProfiles+profileIdx. This layout lets the
// codec write M once per row across profiles and lets the estimator stride
// linearly.
func EntryIndex(shapeIdx, mIdx, profileIdx, mNum, nProfiles int) int {
	return ((shapeIdx*mNum)+mIdx)*nProfiles + profileIdx
}

// entryIndex is the artifact's own convenience wrapper around EntryIndex.
func (a *Artifact) entryIndex(shapeIdx, mIdx, profileIdx int) int {
	return EntryIndex(shapeIdx, mIdx, profileIdx, a.MNum, a.NProfiles())
}

// Entry returns the entry for (shapeIdx, mIdx, profileIdx).
func (a *Artifact) Entry(shapeIdx, mIdx, profileIdx int) StagesTime {
	return a.Entries[a.entryIndex(shapeIdx, mIdx, profileIdx)]
}

// SetEntry stores the entry for (shapeIdx, mIdx, profileIdx). Used by the
// benchmark harness while filling a freshly constructed Artifact, and by the
// built-in fixture (fixture.go) to fill its constant artifact.
func (a *Artifact) SetEntry(shapeIdx, mIdx, profileIdx int, t StagesTime) {
	a.Entries[a.entryIndex(shapeIdx, mIdx, profileIdx)] = t
}

// MAt returns the M value of grid point mIdx (0-based): m_step*(mIdx+1).
func (a *Artifact) MAt(mIdx int) int {
	return a.MStep * (mIdx + 1)
}

// ShapeIndex returns the index of the shape matching (n, k), or -1.
func (a *Artifact) ShapeIndex(n, k int) int {
	for i, s := range a.Shapes {
		if s.N == n && s.K == k {
			return i
		}
	}
	return -1
}

// NewArtifact allocates an Artifact's Entries arena for the given shapes,
// M-grid, and profile layout, ready for the benchmark harness to fill in.
func NewArtifact(modelTag, qTypeTag string, gpuBackend Backend, gpuTag string, mStep, mNum int, shapes []Shape, layout [][numStages]StageConf) (*Artifact, error) {
	a := &Artifact{
		Version:       CurrentVersion,
		ModelTag:      modelTag,
		QTypeTag:      qTypeTag,
		GPUBackend:    gpuBackend,
		GPUTag:        gpuTag,
		MStep:         mStep,
		MNum:          mNum,
		Shapes:        shapes,
		ProfileLayout: layout,
	}
	a.Entries = make([]StagesTime, len(shapes)*mNum*len(layout))
	if err := ValidateInvariants(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ValidateInvariants checks the structural invariants an Artifact requires
// to hold on a valid artifact at all times. It does not check the
// build-compatibility tags (gpu_backend_tag/model_tag/q_type_tag) checked
// by Validate — those depend on the running build, not on internal
// consistency.
func ValidateInvariants(a *Artifact) error {
	if a.MStep <= 0 {
		return fmt.Errorf("%w: m_step must be > 0, got %d", ErrArtifactParse, a.MStep)
	}
	if a.MNum < 2 {
		return fmt.Errorf("%w: m_num must be >= 2, got %d", ErrArtifactParse, a.MNum)
	}
	if len(a.Shapes) == 0 {
		return fmt.Errorf("%w: shapes must be non-empty", ErrArtifactParse)
	}
	nProfiles := len(a.ProfileLayout)
	if nProfiles < 1 {
		return fmt.Errorf("%w: n_profiles must be >= 1, got %d", ErrArtifactParse, nProfiles)
	}
	for p, layout := range a.ProfileLayout {
		hasWork := false
		for _, conf := range layout {
			if conf.Concurrency != Absent {
				hasWork = true
				break
			}
		}
		if !hasWork {
			return fmt.Errorf("%w: profile %d has no non-absent stage", ErrArtifactParse, p)
		}
	}

	wantLen := len(a.Shapes) * a.MNum * nProfiles
	if len(a.Entries) != wantLen {
		return fmt.Errorf("%w: entries length %d does not match shapes(%d)*m_num(%d)*n_profiles(%d)=%d",
			ErrArtifactParse, len(a.Entries), len(a.Shapes), a.MNum, nProfiles, wantLen)
	}

	for shapeIdx := range a.Shapes {
		for mIdx := 0; mIdx < a.MNum; mIdx++ {
			for p, layout := range a.ProfileLayout {
				e := a.Entry(shapeIdx, mIdx, p)
				for s := 0; s < numStages; s++ {
					if layout[s].Concurrency == Absent {
						if e[s] != 0 {
							return fmt.Errorf("%w: shape %d M-index %d profile %d stage %d is Absent but stages_time=%d",
								ErrArtifactParse, shapeIdx, mIdx, p, s, e[s])
						}
					} else if e[s] < 0 {
						return fmt.Errorf("%w: shape %d M-index %d profile %d stage %d has negative time %d",
							ErrArtifactParse, shapeIdx, mIdx, p, s, e[s])
					}
				}
			}
		}
	}

	return nil
}
