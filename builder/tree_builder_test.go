package builder

import (
	"context"
	"math"
	"testing"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
	"github.com/arborix/isoforest/tree"
)

// TestBuildTreeImputeMissingFollowsFillValueBranch is the scenario spec.md
// §4.4/§6 names for MissingAction=Impute: a row missing the split column
// at predict time must be substituted with the node's training-time fill
// value and classified exactly as a present value equal to that fill
// value would be (tree.Predict's predictMissingNumeric). The training
// data is two well-separated constant clusters (five 0s, five 100s) on a
// single numeric column, so the root is the only split (both children are
// constant and terminate immediately), and computeImputeFill's mean over
// the active subset is deterministically 50 regardless of where the
// randomly drawn threshold falls.
func TestBuildTreeImputeMissingFollowsFillValueBranch(t *testing.T) {
	ctx := context.Background()
	values := []float64{0, 0, 0, 0, 0, 100, 100, 100, 100, 100}
	m := column.NewDense(len(values), [][]float64{values}, nil, nil)
	sampleIx := make([]int32, len(values))
	for i := range sampleIx {
		sampleIx[i] = int32(i)
	}

	cfg := Config{MissingAction: tree.Impute, NewCatAction: tree.Weighted, CatSplitType: tree.SubSet}
	src := rng.NewSource(1, 0)
	tr, err := BuildTree(ctx, m, sampleIx, cfg, src, 0)
	if err != nil {
		t.Fatal(err)
	}

	root, err := tr.Get(ctx, tr.RootIdx)
	if err != nil {
		t.Fatal(err)
	}
	if root.IsLeaf() {
		t.Fatal("root should split on the only numeric column")
	}
	if root.FillVal != 50 {
		t.Fatalf("root.FillVal = %v, want 50 (mean of five 0s and five 100s)", root.FillVal)
	}

	missing := column.NewDense(1, [][]float64{{math.NaN()}}, nil, nil)
	filled := column.NewDense(1, [][]float64{{50}}, nil, nil)

	dMissing, err := tree.Predict(ctx, tr, missing, 0)
	if err != nil {
		t.Fatal(err)
	}
	dFilled, err := tree.Predict(ctx, tr, filled, 0)
	if err != nil {
		t.Fatal(err)
	}
	if dMissing != dFilled {
		t.Errorf("Predict(missing) = %v, Predict(explicit fill value) = %v; Impute should route a missing value identically to its fill value", dMissing, dFilled)
	}
}
