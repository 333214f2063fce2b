// Command isoforest fits and queries isolation forests from the
// command line, the Go analog of the teacher's cmd/botanic: one root
// Cobra command carrying a shared verbose flag, with fit/predict/
// similarity/version subcommands hung off it.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "isoforest",
		Short: "isoforest fits and queries isolation forests for anomaly detection",
		Long:  `A tool to fit isolation forests from your data, score new rows for anomalousness, and compute row similarity.`,
	}
	config := &rootCmdConfig{}
	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to STDERR")
	cobra.OnInitialize(func() { config.logger = logger(verbose) })
	rootCmd.AddCommand(versionCmd(), fitCmd(config), predictCmd(config), similarityCmd(config))
	return rootCmd
}
