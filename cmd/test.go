package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mqy/llama.cpp/tune"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the built-in estimator/selector checks against a constant in-memory artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tune.RunFixtureChecks(); err != nil {
			return exitWith(1, err)
		}
		cmd.Println("ok")
		return nil
	},
}
