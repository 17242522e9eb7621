package bench

import (
	"context"
	"time"

	"github.com/mqy/llama.cpp/tune"
)

// SyntheticKernel is a reference Kernel implementation for hosts with no
// real matmul backend wired in. The actual kernel is explicitly out of
// scope for this subsystem — it is an external collaborator invoked
// opaquely — so this stands in for it wherever the `mulmat-tune bench` subcommand
// needs something to drive: it derives a plausible duration from the
// operation's FLOP count and backend instead of timing real hardware.
//
// Durations are deterministic given (backend, stage, n, k, m), which makes
// benches reproducible without a GPU or a BLAS library present. Invoke
// always measures the single-task baseline: it has no worker count to
// scale by, matching the harness's bench-time contract.
type SyntheticKernel struct {
	// NanosPerFlop scales duration per backend; CPU is slowest, GPU
	// fastest, matching the qualitative shape a real profile sweep shows.
	NanosPerFlop map[tune.Backend]float64
}

// NewSyntheticKernel returns a SyntheticKernel with reasonable relative
// per-backend costs.
func NewSyntheticKernel() *SyntheticKernel {
	return &SyntheticKernel{
		NanosPerFlop: map[tune.Backend]float64{
			tune.BackendCpu:        0.90,
			tune.BackendAccelerate: 0.35,
			tune.BackendOpenBlas:   0.40,
			tune.BackendCublas:     0.08,
			tune.BackendClBlast:    0.12,
		},
	}
}

func (k *SyntheticKernel) Invoke(ctx context.Context, backend tune.Backend, stage tune.Stage, buf []float32, n, k_, m int) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	perFlop, ok := k.NanosPerFlop[backend]
	if !ok {
		perFlop = k.NanosPerFlop[tune.BackendCpu]
	}

	flops := float64(m) * float64(n) * float64(k_)
	switch stage {
	case tune.StageInit:
		flops *= 0.1 // quantization/repack pass touches the weight, not the full GEMM
	case tune.StageFinalize:
		flops *= 0.02
	}

	nanos := flops * perFlop
	if nanos < 1 {
		nanos = 1
	}
	return time.Duration(nanos), nil
}
