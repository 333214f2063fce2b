package tree

import (
	"context"
	"math"
	"testing"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/split"
)

// buildSimpleTree builds: root splits col 0 at 0.5; left is leaf
// score=1, right is leaf score=2.
func buildSimpleTree(t *testing.T) *Tree {
	ctx := context.Background()
	ns := NewMemoryNodeStore()
	leftIdx, err := ns.Append(ctx, &Node{Score: 1})
	if err != nil {
		t.Fatal(err)
	}
	rightIdx, err := ns.Append(ctx, &Node{Score: 2})
	if err != nil {
		t.Fatal(err)
	}
	rootIdx, err := ns.Append(ctx, &Node{
		Split:       NumericSplitSpec{ColNum: 0, Threshold: 0.5},
		Left:        leftIdx,
		Right:       rightIdx,
		PctTreeLeft: 0.5,
		RangeLow:    0,
		RangeHigh:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(rootIdx, ns, Weighted, SubSet, Divide, false, 1, 1, 256)
}

func TestPredictRoutesLeftAndRight(t *testing.T) {
	tr := buildSimpleTree(t)
	m := column.NewDense(2, [][]float64{{0.1, 0.9}}, nil, nil)
	ctx := context.Background()
	d, err := Predict(ctx, tr, m, 0)
	if err != nil {
		t.Fatal(err)
	}
	// root depth 0, value 0.1<=0.5 routes left, depth+1=1, leaf score=1 -> total 2
	if d != 2 {
		t.Errorf("Predict(row0) = %v, want 2", d)
	}
	d2, err := Predict(ctx, tr, m, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d2 != 3 {
		t.Errorf("Predict(row1) = %v, want 3", d2)
	}
}

func TestPredictDivideMissingWeightsBothSides(t *testing.T) {
	tr := buildSimpleTree(t)
	m := column.NewDense(1, [][]float64{{math.NaN()}}, nil, nil)
	ctx := context.Background()
	d, err := Predict(ctx, tr, m, 0)
	if err != nil {
		t.Fatal(err)
	}
	// left depth=1+1=2, right depth=1+2=3; weighted 0.5 each = 2.5
	want := 0.5*2 + 0.5*3
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("Predict with missing value = %v, want %v", d, want)
	}
}

// buildImputeTree builds a tree whose root imputes a missing numeric
// value with FillVal=0.6, which is > the 0.5 threshold and so should
// route right, unlike buildSimpleTree's Divide policy which weights both
// sides.
func buildImputeTree(t *testing.T) *Tree {
	ctx := context.Background()
	ns := NewMemoryNodeStore()
	leftIdx, err := ns.Append(ctx, &Node{Score: 1})
	if err != nil {
		t.Fatal(err)
	}
	rightIdx, err := ns.Append(ctx, &Node{Score: 2})
	if err != nil {
		t.Fatal(err)
	}
	rootIdx, err := ns.Append(ctx, &Node{
		Split:       NumericSplitSpec{ColNum: 0, Threshold: 0.5},
		Left:        leftIdx,
		Right:       rightIdx,
		PctTreeLeft: 0.5,
		FillVal:     0.6,
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(rootIdx, ns, Weighted, SubSet, Impute, false, 1, 1, 256)
}

// TestPredictImputeMissingUsesFillValue is the regression test for the
// bug where a missing value under MissingAction=Impute was always routed
// left instead of being substituted with the node's trained FillVal and
// classified against the split threshold like a present value.
func TestPredictImputeMissingUsesFillValue(t *testing.T) {
	tr := buildImputeTree(t)
	m := column.NewDense(1, [][]float64{{math.NaN()}}, nil, nil)
	ctx := context.Background()
	d, err := Predict(ctx, tr, m, 0)
	if err != nil {
		t.Fatal(err)
	}
	// FillVal=0.6 > threshold 0.5, so the row must route right: depth
	// 0+1=1, right leaf score=2, total 3.
	if d != 3 {
		t.Errorf("Predict with Impute-missing value = %v, want 3 (right branch, FillVal=0.6 > threshold 0.5)", d)
	}
}

// TestPredictImputeMissingCategoricalUsesFillCat is the categorical
// analog: a SubSet split node whose FillCat is not a member of the
// left-branch subset must route the missing row right.
func TestPredictImputeMissingCategoricalUsesFillCat(t *testing.T) {
	ctx := context.Background()
	ns := NewMemoryNodeStore()
	leftIdx, err := ns.Append(ctx, &Node{Score: 1})
	if err != nil {
		t.Fatal(err)
	}
	rightIdx, err := ns.Append(ctx, &Node{Score: 2})
	if err != nil {
		t.Fatal(err)
	}
	rootIdx, err := ns.Append(ctx, &Node{
		Split:       CategSubsetSplitSpec{ColNum: 0, Left: []bool{true, false, false}},
		Left:        leftIdx,
		Right:       rightIdx,
		PctTreeLeft: 0.5,
		FillCat:     2, // not in the left subset {0}
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := New(rootIdx, ns, Weighted, SubSet, Impute, false, 1, 1, 256)

	m := column.NewDense(1, nil, [][]int32{{-1}}, []int{3})
	d, err := Predict(ctx, tr, m, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d != 3 {
		t.Errorf("Predict with Impute-missing category = %v, want 3 (right branch, FillCat=2 not in left subset)", d)
	}
}

func TestTraverseVisitsAllNodes(t *testing.T) {
	tr := buildSimpleTree(t)
	ctx := context.Background()
	var visited []int32
	err := tr.Traverse(ctx, false, func(_ context.Context, idx int32, _ *Node) error {
		visited = append(visited, idx)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 3 {
		t.Errorf("visited %d nodes, want 3", len(visited))
	}
}

func TestRangePenaltyMonotonicity(t *testing.T) {
	a := split.RangePenalty(15, 0, 10)
	b := split.RangePenalty(20, 0, 10)
	if b <= a {
		t.Errorf("penalty at 20 (%v) should exceed penalty at 15 (%v)", b, a)
	}
	if split.RangePenalty(5, 0, 10) != 0 {
		t.Errorf("in-range value should have zero penalty")
	}
}
