package tune

import "fmt"

// StageConf is a (backend, concurrency) pair for one stage of one profile.
type StageConf struct {
	Backend      Backend
	Concurrency  StageConcurrency
}

// AbsentConf is the StageConf used for a stage that does not execute under
// a given profile.
var AbsentConf = StageConf{Backend: BackendUnknown, Concurrency: Absent}

// Profile is a named combination of three StageConf values, one per stage
// slot (Init, Compute, Finalize), used throughout tuning and selection.
type Profile struct {
	Name   string
	Stages [numStages]StageConf
}

// HasWork reports whether at least one stage of the profile is non-Absent.
// Every profile in a valid catalog must satisfy this.
func (p Profile) HasWork() bool {
	for _, s := range p.Stages {
		if s.Concurrency != Absent {
			return true
		}
	}
	return false
}

const (
	// ProfileCpuOnly names the profile where every stage runs on CPU.
	ProfileCpuOnly = "CpuOnly"
	// ProfileCpuInitBlasCompute names the profile used with CPU-side BLAS
	// (Accelerate/OpenBLAS): Init quantizes on all workers, Compute hands
	// off to BLAS single-threaded-but-internally-parallel.
	ProfileCpuInitBlasCompute = "CpuInitBlasCompute"
	// ProfileBlasComputeOnly names the profile used with GPU BLAS
	// (cuBLAS/CLBlast): the whole op executes in the Compute stage.
	ProfileBlasComputeOnly = "BlasComputeOnly"
)

// cpuOnlyProfile is always present in the catalog.
func cpuOnlyProfile() Profile {
	return Profile{
		Name: ProfileCpuOnly,
		Stages: [numStages]StageConf{
			{Backend: BackendCpu, Concurrency: SingleNoWait},
			{Backend: BackendCpu, Concurrency: AllParallel},
			AbsentConf,
		},
	}
}

// cpuInitBlasComputeProfile is added when a CPU-side BLAS backend
// (Accelerate/OpenBLAS) is present.
func cpuInitBlasComputeProfile(blas Backend) Profile {
	return Profile{
		Name: ProfileCpuInitBlasCompute,
		Stages: [numStages]StageConf{
			{Backend: BackendCpu, Concurrency: AllParallel},
			{Backend: blas, Concurrency: SingleWait},
			AbsentConf,
		},
	}
}

// blasComputeOnlyProfile is added when a GPU BLAS backend (cuBLAS/CLBlast)
// is present. Init is absent because staging happens inside Compute.
func blasComputeOnlyProfile(blas Backend) Profile {
	return Profile{
		Name: ProfileBlasComputeOnly,
		Stages: [numStages]StageConf{
			AbsentConf,
			{Backend: blas, Concurrency: SingleNoWait},
			AbsentConf,
		},
	}
}

// Catalog enumerates the legal profiles for a build. At most one non-CPU
// profile is ever present: a CPU-side BLAS and a GPU BLAS are mutually
// exclusive backend choices for a single build.
type Catalog struct {
	Profiles []Profile
}

// NewCatalog builds the profile catalog for a build. blas is the single
// compiled-in accelerator backend, or BackendUnknown for a CPU-only build.
// It is an error to pass a blas backend that is neither CPU-side BLAS nor
// GPU BLAS.
func NewCatalog(blas Backend) (Catalog, error) {
	cat := Catalog{Profiles: []Profile{cpuOnlyProfile()}}
	switch {
	case blas == BackendUnknown:
		// CPU-only build; CpuOnly is the sole profile.
	case blas.IsCPUBlas():
		cat.Profiles = append(cat.Profiles, cpuInitBlasComputeProfile(blas))
	case blas.IsGPU():
		cat.Profiles = append(cat.Profiles, blasComputeOnlyProfile(blas))
	default:
		return Catalog{}, fmt.Errorf("tune: NewCatalog: %v is not a usable accelerator backend", blas)
	}
	return cat, nil
}

// NProfiles returns the number of profiles in the catalog.
func (c Catalog) NProfiles() int {
	return len(c.Profiles)
}

// IndexOf returns the index of the profile with the given name, or -1.
func (c Catalog) IndexOf(name string) int {
	for i, p := range c.Profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}
