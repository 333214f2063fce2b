package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/forest"
	"github.com/arborix/isoforest/ioutil/isocsv"
	"github.com/arborix/isoforest/ioutil/isojson"
	"github.com/arborix/isoforest/ioutil/yamlconf"
)

type similarityCmdConfig struct {
	*rootCmdConfig
	dataInput       string
	metadataInput   string
	forestInput     string
	extended        bool
	distance        bool
	assumeFullDistr bool
}

func similarityCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &similarityCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Compute a pairwise similarity (or distance) matrix over a set of rows",
		Long:  `Read a CSV of rows and print the dense pairwise similarity (or, with --distance, distance) matrix for them under a fitted forest.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			cols, _, err := yamlconf.ReadConfigFromFile(config.metadataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			ctx := context.Background()
			config.Logf("Reading rows from %s...", inputLabel(config.dataInput))
			data, _, err := isocsv.ReadDenseFromFile(config.dataInput, cols)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}

			config.Logf("Loading forest from %s...", config.forestInput)
			compact, err := config.compute(ctx, data)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			dense := forest.DenseSimilarity(data.NumRows(), compact)
			for _, row := range dense {
				for j, v := range row {
					if j > 0 {
						fmt.Print(" ")
					}
					fmt.Printf("%f", v)
				}
				fmt.Println()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with rows to compare (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to the YML file describing the input columns (required)")
	cmd.PersistentFlags().StringVarP(&(config.forestInput), "forest", "f", "", "path to a file with a forest previously written by fit (required)")
	cmd.PersistentFlags().BoolVar(&(config.extended), "extended", false, "the forest at --forest is an extended (hyperplane) forest")
	cmd.PersistentFlags().BoolVar(&(config.distance), "distance", false, "print 1-similarity (distance) instead of similarity")
	cmd.PersistentFlags().BoolVar(&(config.assumeFullDistr), "assume-full-distr", false, "use the assume_full_distr tmat contribution formula")
	return cmd
}

func (scc *similarityCmdConfig) Validate() error {
	if scc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if scc.forestInput == "" {
		return fmt.Errorf("required forest flag was not set")
	}
	return nil
}

func (scc *similarityCmdConfig) compute(ctx context.Context, data column.Matrix) ([]float64, error) {
	if scc.extended {
		f, err := isojson.ReadExtForestFromFile(ctx, scc.forestInput)
		if err != nil {
			return nil, err
		}
		if scc.distance {
			return f.Distance(ctx, data, scc.assumeFullDistr)
		}
		return f.Similarity(ctx, data, scc.assumeFullDistr)
	}
	f, err := isojson.ReadForestFromFile(ctx, scc.forestInput)
	if err != nil {
		return nil, err
	}
	if scc.distance {
		return f.Distance(ctx, data, scc.assumeFullDistr)
	}
	return f.Similarity(ctx, data, scc.assumeFullDistr)
}
