package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mqy/llama.cpp/tune"
)

// sweptNth is the fixed nth projection swept by `analyze`.
var sweptNth = []int{1, 2, 4, 6, 8}

var analyzeCmd = &cobra.Command{
	Use:   "analyze PATH",
	Short: "Load a tune artifact and print a semicolon-separated report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return exitWith(1, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	artifact, err := tune.Decode(f)
	if err != nil {
		return exitWith(1, fmt.Errorf("parse %s: %w", path, err))
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	fmt.Fprintf(w, "model;q_type;gpu_backend;n;k;m;profile_idx;nth;micros\n")
	for shapeIdx, shape := range artifact.Shapes {
		for mIdx := 0; mIdx < artifact.MNum; mIdx++ {
			m := artifact.MAt(mIdx)
			for p := 0; p < artifact.NProfiles(); p++ {
				for _, nth := range sweptNth {
					micros, err := tune.Estimate(artifact, m, shape.N, shape.K, nth, p)
					if err != nil {
						return exitWith(1, fmt.Errorf("estimate shape %d M=%d profile %d nth %d: %w", shapeIdx, m, p, nth, err))
					}
					fmt.Fprintf(w, "%s;%s;%s;%d;%d;%d;%d;%d;%d\n",
						artifact.ModelTag, artifact.QTypeTag, artifact.GPUBackend,
						shape.N, shape.K, m, p, nth, micros)
				}
			}
		}
	}
	return nil
}
