package main

import (
	"github.com/notargets/DGHalo/cmd"
	"github.com/notargets/DGHalo/cmd/run"
	"os"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(run.NewRunCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
