// Package builder implements the recursive partitioning state machine
// that grows one isolation tree (or one extended hyperplane tree) from a
// sampled set of active rows, per spec.md §4.4/§4.5. It is the Go analog
// of the teacher's botanic.BranchOut/Work loop, generalized from
// "branch a decision-tree node by information gain over a labeled
// dataset" to "branch an isolation-tree node by a random-or-guided split
// with no label," and from the teacher's queue-of-pending-nodes worker
// loop to an explicit per-tree job stack (see RecursionState) since a
// single tree is built by one goroutine end to end (spec.md §5).
package builder

import (
	"context"

	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// CoefType selects how extended-model coefficients are drawn (§4.5).
type CoefType int

const (
	Uniform CoefType = iota
	Normal
)

// Config holds every per-tree parameter the builder needs. It is the Go
// analog of the teacher's PruningStrategy, generalized from "stop
// splitting when information gain is too small" to isolation forest's
// termination/missing/new-category/extended-model policy set. The
// forest package's Params carries the same per-tree fields alongside the
// ensemble-level ones (tree count, worker count, seed) and derives one
// Config from them per ensemble.
type Config struct {
	MaxDepth      int  // only consulted when LimitDepth is true
	LimitDepth    bool
	Ndim          int // 1 selects the single-variable builder; >1 selects the hyperplane builder
	NTry          int // candidate split-point repeats for the hyperplane builder
	MissingAction tree.MissingAction
	NewCatAction  tree.NewCategAction
	CatSplitType  tree.CatSplitType
	PenalizeRange bool

	Probabilities split.Probabilities
	AllPerm       bool
	CoefType      CoefType

	ColWeights      []float64 // per-column sampling weight, nil for uniform
	WeighByKurtosis bool
	RowWeights      []float64 // per-row training weight, nil for unweighted

	// NodeStoreFactory opens the tree.NodeStore a given tree's nodes are
	// appended into, keyed by treeIndex so several trees sharing one
	// backing database or Redis instance land in distinct rows/keys
	// (store/sqlstore, store/redisstore). nil selects
	// tree.NewMemoryNodeStore, the default for a forest built and scored
	// within a single process.
	NodeStoreFactory func(ctx context.Context, treeIndex int) (tree.NodeStore, error)
}

// openNodeStore resolves cfg's NodeStoreFactory for treeIndex, defaulting
// to an in-memory store when none was configured.
func openNodeStore(ctx context.Context, cfg Config, treeIndex int) (tree.NodeStore, error) {
	if cfg.NodeStoreFactory == nil {
		return tree.NewMemoryNodeStore(), nil
	}
	return cfg.NodeStoreFactory(ctx, treeIndex)
}
