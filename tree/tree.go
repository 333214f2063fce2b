package tree

import (
	"context"
	"fmt"
)

// MissingAction selects how a node whose split variable is missing at
// predict time is handled (spec.md §4.4). Divide is only valid for the
// single-variable model.
type MissingAction int

const (
	Fail MissingAction = iota
	Impute
	Divide
)

// NewCategAction selects how an unseen category is routed at predict
// time (spec.md §4.4).
type NewCategAction int

const (
	Weighted NewCategAction = iota
	Smallest
	Random
)

// CatSplitType selects whether categorical splits route an arbitrary
// subset of categories left (SubSet) or exactly one category one way
// (SingleCateg).
type CatSplitType int

const (
	SubSet CatSplitType = iota
	SingleCateg
)

// Tree is a single isolation tree: a NodeStore holding its nodes plus the
// forest-level policy fields it was built under (kept per-tree, as in the
// teacher's Tree holding the label feature it predicts, since a tree
// cannot be traversed correctly without knowing which policies produced
// it).
type Tree struct {
	NodeStore
	RootIdx int32

	NewCatAction   NewCategAction
	CatSplitType   CatSplitType
	MissingAction  MissingAction
	PenalizeRange  bool
	ExpAvgDepth    float64
	ExpAvgSep      float64
	OrigSampleSize int
}

// New returns a Tree rooted at rootIdx within the given NodeStore.
func New(rootIdx int32, ns NodeStore, newCatAction NewCategAction, catSplitType CatSplitType, missingAction MissingAction, penalizeRange bool, expAvgDepth, expAvgSep float64, origSampleSize int) *Tree {
	return &Tree{
		NodeStore:      ns,
		RootIdx:        rootIdx,
		NewCatAction:   newCatAction,
		CatSplitType:   catSplitType,
		MissingAction:  missingAction,
		PenalizeRange:  penalizeRange,
		ExpAvgDepth:    expAvgDepth,
		ExpAvgSep:      expAvgSep,
		OrigSampleSize: origSampleSize,
	}
}

// Traverse visits every node reachable from the root, calling f with the
// context and each node. f is called for a parent before its children
// when bottomup is false, and after when bottomup is true. This is kept
// nearly verbatim from the teacher's tree.Tree.Traverse, which is
// policy-agnostic and needed unchanged here too (used by the similarity
// pass and by String).
func (t *Tree) Traverse(ctx context.Context, bottomup bool, f func(context.Context, int32, *Node) error) error {
	return t.traverse(ctx, t.RootIdx, bottomup, f)
}

func (t *Tree) traverse(ctx context.Context, idx int32, bottomup bool, f func(context.Context, int32, *Node) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := t.Get(ctx, idx)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("traversing tree: node %d not found", idx)
	}
	if !bottomup {
		if err := f(ctx, idx, n); err != nil {
			return err
		}
	}
	if !n.IsLeaf() {
		if err := t.traverse(ctx, n.Left, bottomup, f); err != nil {
			return err
		}
		if err := t.traverse(ctx, n.Right, bottomup, f); err != nil {
			return err
		}
	}
	if bottomup {
		if err := f(ctx, idx, n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) String() string {
	return t.subtreeString(context.Background(), t.RootIdx, 0)
}

func (t *Tree) subtreeString(ctx context.Context, idx int32, depth int) string {
	n, err := t.Get(ctx, idx)
	if err != nil || n == nil {
		return fmt.Sprintf("ERROR: node %d not found\n", idx)
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	if n.IsLeaf() {
		return fmt.Sprintf("%s[%d] leaf score=%.4f\n", indent, idx, n.Score)
	}
	result := fmt.Sprintf("%s[%d] %v\n", indent, idx, n.Split)
	result += t.subtreeString(ctx, n.Left, depth+1)
	result += t.subtreeString(ctx, n.Right, depth+1)
	return result
}
