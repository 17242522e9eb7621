package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mqy/llama.cpp/tune"
	"github.com/mqy/llama.cpp/tune/bench"
)

var (
	benchModel  string
	benchQType  string
	benchMStep  int
	benchMNum   int
	benchFile   string
	benchAssume bool
)

var validQTypes = map[string]bool{
	"Q4_0": true, "Q4_1": true, "Q5_0": true, "Q5_1": true, "Q8_0": true,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a full benchmark sweep and write a tune artifact",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchModel, "model", "", "model tag: 7B or 13B (30B and 65B have no shape data and are rejected)")
	benchCmd.Flags().StringVar(&benchQType, "type", "", "quantization type: Q4_0, Q4_1, Q5_0, Q5_1, or Q8_0")
	benchCmd.Flags().IntVar(&benchMStep, "m_step", 8, "the step of M, also its start value")
	benchCmd.Flags().IntVar(&benchMNum, "m_num", 16, "number of M grid points; total M range is m_step*m_num")
	benchCmd.Flags().StringVar(&benchFile, "file", "", "output artifact path; empty means stdout")
	benchCmd.Flags().BoolVar(&benchAssume, "y", false, "overwrite the output file without confirmation")
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchQType == "" || !validQTypes[benchQType] {
		return exitWith(1, fmt.Errorf("invalid -type %q: must be one of Q4_0, Q4_1, Q5_0, Q5_1, Q8_0", benchQType))
	}
	if benchMStep <= 0 {
		return exitWith(1, fmt.Errorf("invalid -m_step %d: must be > 0", benchMStep))
	}
	if benchMNum < 2 {
		return exitWith(1, fmt.Errorf("invalid -m_num %d: must be >= 2", benchMNum))
	}

	catalog, err := tune.LoadModelCatalog()
	if err != nil {
		return exitWith(1, err)
	}
	shapes, ok := catalog.Shapes(benchModel)
	if !ok {
		return exitWith(1, fmt.Errorf("unsupported -model %q: known models are %s", benchModel, strings.Join(catalog.ModelTags(), ", ")))
	}

	if benchFile != "" && !benchAssume {
		if _, err := os.Stat(benchFile); err == nil {
			proceed, err := confirmOverwrite(benchFile)
			if err != nil {
				return exitWith(1, err)
			}
			if !proceed {
				return exitWith(2, fmt.Errorf("aborted: %s exists and was not overwritten", benchFile))
			}
		}
	}

	gpuBackend, gpuTag := detectAccelerator()
	profileCatalog, err := tune.NewCatalog(gpuBackend)
	if err != nil {
		return exitWith(1, err)
	}

	logrus.Infof("benching model=%s type=%s m_step=%d m_num=%d shapes=%d profiles=%d",
		benchModel, benchQType, benchMStep, benchMNum, len(shapes), profileCatalog.NProfiles())

	h := bench.NewHarness(bench.NewSyntheticKernel(), os.Stdout)
	artifact, err := h.Run(cmd.Context(), benchModel, benchQType, gpuBackend, gpuTag, benchMStep, benchMNum, shapes, profileCatalog)
	if err != nil {
		logrus.Errorf("bench aborted: %v", err)
		return exitWith(1, err)
	}

	out := os.Stdout
	if benchFile != "" {
		f, err := os.Create(benchFile)
		if err != nil {
			return exitWith(1, fmt.Errorf("create %s: %w", benchFile, err))
		}
		defer f.Close()
		if err := tune.Encode(f, artifact); err != nil {
			return exitWith(1, fmt.Errorf("write %s: %w", benchFile, err))
		}
		logrus.Infof("wrote artifact to %s", benchFile)
		return nil
	}

	if err := tune.Encode(out, artifact); err != nil {
		return exitWith(1, err)
	}
	return nil
}

// confirmOverwrite asks the user to confirm overwriting an existing
// artifact file, mirroring the original tuner's ask_yes_or_no prompt.
func confirmOverwrite(path string) (bool, error) {
	fmt.Fprintf(os.Stdout, "%s already exists. Overwrite? [y/N] ", path)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	line = strings.TrimSpace(line)
	return line == "y" || line == "Y", nil
}

// detectAccelerator reads the compiled-in accelerator backend from the
// environment, the way the running build would otherwise bake it in at
// compile time. Unset means a CPU-only build.
func detectAccelerator() (tune.Backend, string) {
	name := os.Getenv("MULMAT_TUNE_BACKEND")
	if name == "" {
		return tune.BackendUnknown, ""
	}
	b, ok := tune.ParseBackend(strings.ToUpper(name))
	if !ok {
		logrus.Warnf("unrecognized MULMAT_TUNE_BACKEND=%q, falling back to CPU-only", name)
		return tune.BackendUnknown, ""
	}
	return b, b.String()
}
