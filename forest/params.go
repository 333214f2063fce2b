// Package forest implements the ensemble driver of spec.md §5/§8: parallel
// construction of an isolation forest's trees (or an extended forest's
// hyperplane trees), on-the-fly depth/similarity accumulation, and the
// predict-time scoring and similarity/distance passes that consume a
// trained forest. It is the Go analog of the teacher's botanic.Grow plus
// wlattner-rf/forest/forest.go's worker-pool Fit, generalized from
// "grow one labeled decision tree per worker" to "grow one isolation tree
// per worker over an unlabeled row sample."
package forest

import (
	"context"

	"github.com/arborix/isoforest/builder"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// Params groups every scalar parameter an ensemble fit needs: the
// per-tree builder.Config plus ensemble-level fields (tree/worker count,
// seed, sampling, scoring policy). It is the Go analog of the teacher's
// botanic.PruningStrategy plus the flag set `grow_cmd.go` wires onto it.
type Params struct {
	NumTrees        int
	NumWorkers      int
	RandomSeed      uint64
	SampleSize      int // 0 means SampleSize = nrows
	WithReplacement bool

	MaxDepth      int
	LimitDepth    bool
	Ndim          int // Fit always uses 1; FitExtended raises values below 2 to 2
	NTry          int
	MissingAction tree.MissingAction
	NewCatAction  tree.NewCategAction
	CatSplitType  tree.CatSplitType
	PenalizeRange bool

	Probabilities split.Probabilities
	AllPerm       bool
	CoefType      builder.CoefType

	ColWeights      []float64
	WeighByKurtosis bool
	RowWeights      []float64

	// RawDepth, when true, makes Predict return the raw mean isolation
	// depth instead of the standardized score 2^(-E[depth]/c(n))
	// (spec.md §4.6 "standardize_depth=false"). The zero value
	// (standardized scoring) is the library's default and primary use.
	RawDepth bool

	// ComputeDepths/ComputeTmat request the on-the-fly in-sample
	// accumulation of spec.md §6/§4.7 during Fit; the results land in
	// Forest.OutputDepths / Forest.Tmat.
	ComputeDepths bool
	ComputeTmat   bool

	// AssumeFullDistr selects the §4.7 tmat contribution formula used
	// both during Fit's on-the-fly accumulation and by Similarity/
	// Distance at predict time (1 - remaining_depth/expected_depth when
	// true, vs. (expected_depth-shared_depth)/expected_depth when false).
	AssumeFullDistr bool

	Verbose bool

	// NodeStoreFactory, when set, opens each tree's builder.Config.
	// NodeStoreFactory (store/sqlstore, store/redisstore) instead of
	// building every tree in process memory; see cmd/isoforest's --store
	// flag for how the CLI constructs one. nil keeps the library's
	// default of one in-memory tree.NodeStore per tree.
	NodeStoreFactory func(ctx context.Context, treeIndex int) (tree.NodeStore, error)
}

// config derives the per-tree builder.Config shared by every worker from
// the ensemble-level Params. It is recomputed once per Fit call, not per
// tree, since none of its fields vary by tree index.
func (p Params) config() builder.Config {
	return builder.Config{
		MaxDepth:         p.MaxDepth,
		LimitDepth:       p.LimitDepth,
		Ndim:             p.Ndim,
		NTry:             p.NTry,
		MissingAction:    p.MissingAction,
		NewCatAction:     p.NewCatAction,
		CatSplitType:     p.CatSplitType,
		PenalizeRange:    p.PenalizeRange,
		Probabilities:    p.Probabilities,
		AllPerm:          p.AllPerm,
		CoefType:         p.CoefType,
		ColWeights:       p.ColWeights,
		WeighByKurtosis:  p.WeighByKurtosis,
		RowWeights:       p.RowWeights,
		NodeStoreFactory: p.NodeStoreFactory,
	}
}

// sampleSize returns the configured sample size, defaulting to nrows.
func (p Params) sampleSize(nrows int) int {
	if p.SampleSize <= 0 {
		return nrows
	}
	return p.SampleSize
}

func (p Params) numWorkers() int {
	if p.NumWorkers < 1 {
		return 1
	}
	return p.NumWorkers
}

func (p Params) numTrees() int {
	if p.NumTrees < 1 {
		return 1
	}
	return p.NumTrees
}
