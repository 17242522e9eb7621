// Package bench implements the benchmark harness: it drives an
// external matmul kernel collaborator through every (shape, M, profile,
// stage) combination and fills in a tune.Artifact. Everything in this
// package is side-effectful; the pure estimation and selection logic lives
// in package tune.
package bench

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/mqy/llama.cpp/tune"
)

// NumBench is the number of back-to-back kernel invocations sampled per
// (shape, M, profile, stage); the harness records their minimum. Fixed per
// build, matching the original tuner's NUM_BENCH.
const NumBench = 3

// spinnerFrames cycles through the same four glyphs as the original
// tuner's tty progress indicator.
var spinnerFrames = [4]byte{'|', '/', '-', '\\'}

// Kernel is the external matmul kernel collaborator. One Invoke call times
// a single stage of a single matmul op at the given shape and records how
// long it took; the harness interprets only the returned duration and
// error, never the buffer contents.
//
// Invoke always runs the single-task baseline, with no worker count: the
// recorded stages_time must be nth-independent so Estimate alone can apply
// nth-scaling at serving time for AllParallel stages. A multi-threaded
// profile's benefit from nth workers is captured once, at estimate time,
// not re-measured per nth at bench time.
type Kernel interface {
	Invoke(ctx context.Context, backend tune.Backend, stage tune.Stage, buf []float32, n, k, m int) (time.Duration, error)
}

// Harness runs a full benchmark sweep against a Kernel.
type Harness struct {
	Kernel Kernel
	Logger *logrus.Logger

	// Progress receives the spinner/progress-line output; nil disables it.
	Progress io.Writer

	// NumBenchOverride overrides the default sample count; zero means NumBench.
	NumBenchOverride int
}

// NewHarness builds a Harness with a default logger and the package's
// default sample count.
func NewHarness(k Kernel, progress io.Writer) *Harness {
	return &Harness{Kernel: k, Logger: logrus.StandardLogger(), Progress: progress}
}

func (h *Harness) numBench() int {
	if h.NumBenchOverride > 0 {
		return h.NumBenchOverride
	}
	return NumBench
}

// Run benchmarks every (shape, m_idx, profile, stage) slot of a freshly
// allocated Artifact and returns it fully populated. Every stage is timed
// as a single-task baseline; nth-scaling for AllParallel stages is applied
// later, at serving time, by Estimate.
//
// Aborts (no partial artifact is returned) on allocation failure or kernel
// error.
func (h *Harness) Run(ctx context.Context, modelTag, qTypeTag string, gpuBackend tune.Backend, gpuTag string, mStep, mNum int, shapes []tune.Shape, catalog tune.Catalog) (*tune.Artifact, error) {
	layout := make([][3]tune.StageConf, len(catalog.Profiles))
	for i, p := range catalog.Profiles {
		layout[i] = p.Stages
	}

	artifact, err := tune.NewArtifact(modelTag, qTypeTag, gpuBackend, gpuTag, mStep, mNum, shapes, layout)
	if err != nil {
		return nil, fmt.Errorf("tune/bench: allocate artifact: %w", err)
	}

	h.logger().WithFields(logrus.Fields{
		"model":     modelTag,
		"q_type":    qTypeTag,
		"n_shapes":  len(shapes),
		"n_profile": len(catalog.Profiles),
	}).Info("starting benchmark sweep")

	maxNK := 0
	for _, s := range shapes {
		if n := s.N * s.K; n > maxNK {
			maxNK = n
		}
	}
	if maxNK <= 0 {
		return nil, fmt.Errorf("%w: no positive N*K among %d shapes", tune.ErrAllocationFailure, len(shapes))
	}
	buf, err := allocateBuffer(maxNK)
	if err != nil {
		return nil, err
	}

	for shapeIdx, shape := range shapes {
		for mIdx := 0; mIdx < mNum; mIdx++ {
			m := mStep * (mIdx + 1)
			line := fmt.Sprintf("%d %d %d ", shape.N, shape.K, m)
			h.printProgress(line)
			glyphs := 0 // one spinner glyph stays on screen per benched stage

			for profileIdx, p := range catalog.Profiles {
				var times tune.StagesTime
				for stage := tune.Stage(0); int(stage) < 3; stage++ {
					conf := p.Stages[stage]
					if conf.Concurrency == tune.Absent {
						continue
					}
					if stage == tune.StageInit {
						zero(buf)
					}

					glyphs++
					micros, err := h.benchStage(ctx, conf.Backend, stage, buf, shape.N, shape.K, m)
					if err != nil {
						h.erase(line, glyphs)
						h.logger().WithFields(logrus.Fields{
							"shape_n": shape.N, "shape_k": shape.K, "m": m,
							"profile": p.Name, "stage": stage,
						}).WithError(err).Error("kernel invocation failed")
						return nil, fmt.Errorf("%w: shape (%d,%d) M=%d profile %q stage %v: %v",
							tune.ErrKernelInvocation, shape.N, shape.K, m, p.Name, stage, err)
					}
					times[stage] = micros
				}
				artifact.SetEntry(shapeIdx, mIdx, profileIdx, times)
			}

			h.erase(line, glyphs)
		}
	}

	h.logger().Info("benchmark sweep complete")
	return artifact, nil
}

// logger returns h.Logger, falling back to the standard logger for a
// zero-value Harness (constructed outside NewHarness).
func (h *Harness) logger() *logrus.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return logrus.StandardLogger()
}

// benchStage samples NumBench back-to-back invocations of one (backend,
// stage) and returns the minimum duration in microseconds. Min, not mean:
// the cost floor is the reproducible quantity.
func (h *Harness) benchStage(ctx context.Context, backend tune.Backend, stage tune.Stage, buf []float32, n, k, m int) (int32, error) {
	samples := make([]float64, h.numBench())
	for i := 0; i < h.numBench(); i++ {
		h.printSpinner(i, h.numBench())
		d, err := h.Kernel.Invoke(ctx, backend, stage, buf, n, k, m)
		if err != nil {
			return 0, err
		}
		samples[i] = float64(d.Microseconds())
	}
	return int32(floats.Min(samples)), nil
}

// maxBufferFloats bounds the reusable work buffer so a pathological shape
// list fails with AllocationFailure instead of crashing the process; the
// original aborted the same way on a size_t overflow computing N*K.
const maxBufferFloats = 1 << 34

func allocateBuffer(n int) ([]float32, error) {
	if n <= 0 || n > maxBufferFloats {
		return nil, fmt.Errorf("%w: work buffer of %d floats exceeds host limit", tune.ErrAllocationFailure, n)
	}
	return make([]float32, n), nil
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func (h *Harness) printProgress(line string) {
	if h.Progress == nil {
		return
	}
	fmt.Fprint(h.Progress, line)
}

func (h *Harness) printSpinner(i, n int) {
	if h.Progress == nil {
		return
	}
	if i > 0 {
		fmt.Fprint(h.Progress, "\b \b")
	}
	if i+1 < n {
		fmt.Fprintf(h.Progress, "%c", spinnerFrames[i%len(spinnerFrames)])
	} else {
		fmt.Fprint(h.Progress, ".")
	}
}

// erase backs out the progress line and the spinner glyphs left after it
// (glyphs, one per benched stage), plus 10 extra backspaces to absorb any
// keystrokes the user typed while waiting (matching the original tuner's
// erase margin).
func (h *Harness) erase(line string, glyphs int) {
	if h.Progress == nil {
		return
	}
	n := len(line) + glyphs + 10
	fmt.Fprint(h.Progress, strings.Repeat("\b \b", n))
}
