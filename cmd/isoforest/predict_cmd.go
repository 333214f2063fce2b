package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborix/isoforest/ioutil/isocsv"
	"github.com/arborix/isoforest/ioutil/isojson"
	"github.com/arborix/isoforest/ioutil/yamlconf"
)

type predictCmdConfig struct {
	*rootCmdConfig
	dataInput     string
	metadataInput string
	forestInput   string
	extended      bool
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score rows for anomalousness using a fitted forest",
		Long:  `Read a CSV of rows and print one anomaly score per row, using a forest previously written by fit.`,
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
			var scores []float64
			if config.extended {
				f, err := isojson.ReadExtForestFromFile(ctx, config.forestInput)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(4)
				}
				scores, err = f.Predict(ctx, data)
			} else {
				f, ferr := isojson.ReadForestFromFile(ctx, config.forestInput)
				if ferr != nil {
					fmt.Fprintln(os.Stderr, ferr)
					os.Exit(4)
				}
				scores, err = f.Predict(ctx, data)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			for _, s := range scores {
				fmt.Printf("%f\n", s)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with rows to score (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to the YML file describing the input columns (required)")
	cmd.PersistentFlags().StringVarP(&(config.forestInput), "forest", "f", "", "path to a file with a forest previously written by fit (required)")
	cmd.PersistentFlags().BoolVar(&(config.extended), "extended", false, "the forest at --forest is an extended (hyperplane) forest")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if pcc.forestInput == "" {
		return fmt.Errorf("required forest flag was not set")
	}
	return nil
}
