package main

import (
	"context"
	"fmt"
	"os"

	mgo "gopkg.in/mgo.v2"
	redis "gopkg.in/redis.v5"

	"github.com/spf13/cobra"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/forest"
	"github.com/arborix/isoforest/ioutil/isocsv"
	"github.com/arborix/isoforest/ioutil/isojson"
	"github.com/arborix/isoforest/ioutil/yamlconf"
	"github.com/arborix/isoforest/store/mongoset"
	"github.com/arborix/isoforest/store/redisstore"
	"github.com/arborix/isoforest/store/sqlstore/pgadapter"
	"github.com/arborix/isoforest/store/sqlstore/sqlite3adapter"
	"github.com/arborix/isoforest/tree"
)

type fitCmdConfig struct {
	*rootCmdConfig
	dataInput        string
	metadataInput    string
	output           string
	extended         bool
	store            string
	storeDSN         string
	storeRedisPrefix string
	mongoURI         string
	mongoDatabase    string
	mongoCollection  string
}

func fitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &fitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit an isolation forest from a set of data",
		Long:  `Fit an isolation forest (or an extended hyperplane forest with --extended) from a CSV training set.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			cols, params, err := yamlconf.ReadConfigFromFile(config.metadataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			params.Verbose = bool(config.logger)

			factory, err := config.nodeStoreFactory()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			params.NodeStoreFactory = factory

			ctx := context.Background()
			var data *column.Dense
			if config.mongoDatabase != "" {
				config.Logf("Reading training set from mongodb %s/%s.%s...", config.mongoURI, config.mongoDatabase, config.mongoCollection)
				session, dialErr := mgo.Dial(config.mongoURI)
				if dialErr != nil {
					fmt.Fprintln(os.Stderr, dialErr)
					os.Exit(3)
				}
				defer session.Close()
				data, _, err = mongoset.ReadDense(ctx, session, config.mongoDatabase, config.mongoCollection, cols)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
			} else {
				config.Logf("Reading training set from %s...", inputLabel(config.dataInput))
				data, _, err = isocsv.ReadDenseFromFile(config.dataInput, cols)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
			}
			if config.extended || params.Ndim >= 2 {
				config.Logf("Fitting an extended forest with %d trees over %d rows...", params.NumTrees, data.NumRows())
				f, err := forest.FitExtended(ctx, data, params)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(4)
				}
				config.Logf("Done")
				if err := writeExtForest(config.output, ctx, f); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(5)
				}
				return
			}
			config.Logf("Fitting a forest with %d trees over %d rows...", params.NumTrees, data.NumRows())
			f, err := forest.Fit(ctx, data, params)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			config.Logf("Done")
			if err := writeForest(config.output, ctx, f); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with training data (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file describing the input columns and fit parameters (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the fitted forest will be written in JSON format (defaults to STDOUT)")
	cmd.PersistentFlags().BoolVar(&(config.extended), "extended", false, "fit an extended (hyperplane) forest regardless of the metadata's ndim")
	cmd.PersistentFlags().StringVar(&(config.store), "store", "memory", "where to persist tree nodes while fitting: memory, sqlite, postgres, or redis")
	cmd.PersistentFlags().StringVar(&(config.storeDSN), "store-dsn", "", "data source for --store=sqlite (file path), postgres (connection URL), or redis (address)")
	cmd.PersistentFlags().StringVar(&(config.storeRedisPrefix), "store-redis-prefix", "isoforest", "Redis key prefix for --store=redis")
	cmd.PersistentFlags().StringVar(&(config.mongoURI), "mongo-uri", "localhost", "MongoDB connection URI, when --mongo-database selects it as the training data source")
	cmd.PersistentFlags().StringVar(&(config.mongoDatabase), "mongo-database", "", "MongoDB database to read the training set from, instead of --input")
	cmd.PersistentFlags().StringVar(&(config.mongoCollection), "mongo-collection", "", "MongoDB collection to read the training set from (required with --mongo-database)")
	return cmd
}

func (fcc *fitCmdConfig) Validate() error {
	if fcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	switch fcc.store {
	case "", "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unrecognized --store %q (want memory, sqlite, postgres, or redis)", fcc.store)
	}
	if fcc.store != "" && fcc.store != "memory" && fcc.storeDSN == "" {
		return fmt.Errorf("--store=%s requires --store-dsn", fcc.store)
	}
	if fcc.mongoDatabase != "" && fcc.mongoCollection == "" {
		return fmt.Errorf("--mongo-database requires --mongo-collection")
	}
	return nil
}

// nodeStoreFactory builds the forest.Params.NodeStoreFactory a fit run
// should use per fcc.store: nil for the in-memory default, or a factory
// that opens a shared SQL/Redis backend and scopes each tree to its own
// tree_id/key namespace, per builder.Config.NodeStoreFactory's contract.
func (fcc *fitCmdConfig) nodeStoreFactory() (func(context.Context, int) (tree.NodeStore, error), error) {
	switch fcc.store {
	case "", "memory":
		return nil, nil
	case "sqlite":
		return func(ctx context.Context, treeIndex int) (tree.NodeStore, error) {
			return sqlite3adapter.Open(ctx, fcc.storeDSN, int64(treeIndex))
		}, nil
	case "postgres":
		return func(ctx context.Context, treeIndex int) (tree.NodeStore, error) {
			return pgadapter.Open(ctx, fcc.storeDSN, int64(treeIndex))
		}, nil
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: fcc.storeDSN})
		return func(ctx context.Context, treeIndex int) (tree.NodeStore, error) {
			return redisstore.NewNodeStore(rc, fcc.storeRedisPrefix, int64(treeIndex)), nil
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized --store %q", fcc.store)
	}
}

func inputLabel(path string) string {
	if path == "" {
		return "STDIN"
	}
	return path
}

func writeForest(outputPath string, ctx context.Context, f *forest.Forest) error {
	if outputPath == "" {
		return isojson.WriteForest(ctx, os.Stdout, f)
	}
	return isojson.WriteForestToFile(ctx, outputPath, f)
}

func writeExtForest(outputPath string, ctx context.Context, f *forest.ExtForest) error {
	if outputPath == "" {
		return isojson.WriteExtForest(ctx, os.Stdout, f)
	}
	return isojson.WriteExtForestToFile(ctx, outputPath, f)
}
