package tree

import (
	"context"
	"fmt"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/split"
)

// Predict walks t for the given row of m, accumulating expected isolation
// depth from the root, and returns it. It implements spec.md §4.6: the
// three missing-value policies, the three new-category policies, and
// optional range penalization. Under Divide, a missing split variable
// splits the row's probability mass across both subtrees and combines
// their depths by a PctTreeLeft-weighted sum, so the return value is an
// expectation rather than a single path length whenever Divide triggers.
func Predict(ctx context.Context, t *Tree, m column.Matrix, row int) (float64, error) {
	return predictAt(ctx, t, m, row, t.RootIdx, 0)
}

func predictAt(ctx context.Context, t *Tree, m column.Matrix, row int, idx int32, curDepth float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.Get(ctx, idx)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("predicting: node %d not found", idx)
	}
	if n.IsLeaf() {
		return curDepth + n.Score, nil
	}

	switch s := n.Split.(type) {
	case NumericSplitSpec:
		v := m.Numeric(row, s.ColNum)
		if column.IsMissingNumeric(v) {
			return predictMissingNumeric(ctx, t, m, row, n, idx, curDepth, s)
		}
		next := curDepth
		if t.PenalizeRange {
			next += split.RangePenalty(v, n.RangeLow, n.RangeHigh)
		}
		if v <= s.Threshold {
			return predictAt(ctx, t, m, row, n.Left, next+1)
		}
		return predictAt(ctx, t, m, row, n.Right, next+1)

	case CategSubsetSplitSpec:
		v := m.Categorical(row, s.ColNum)
		if v < 0 {
			return predictMissingCategSubset(ctx, t, m, row, n, idx, curDepth, s)
		}
		if int(v) < len(s.Left) {
			if s.Left[v] {
				return predictAt(ctx, t, m, row, n.Left, curDepth+1)
			}
			return predictAt(ctx, t, m, row, n.Right, curDepth+1)
		}
		return predictNewCategory(ctx, t, m, row, n, idx, curDepth)

	case SingleCategSplitSpec:
		v := m.Categorical(row, s.ColNum)
		if v < 0 {
			return predictMissingSingleCateg(ctx, t, m, row, n, idx, curDepth, s)
		}
		ncat := m.NumCategories(s.ColNum)
		if int(v) < ncat {
			if v == s.Category {
				return predictAt(ctx, t, m, row, n.Left, curDepth+1)
			}
			return predictAt(ctx, t, m, row, n.Right, curDepth+1)
		}
		return predictNewCategory(ctx, t, m, row, n, idx, curDepth)

	case HyperplaneSplitSpec:
		z := projectHyperplane(m, row, s)
		next := curDepth
		if t.PenalizeRange {
			next += split.RangePenalty(z, n.RangeLow, n.RangeHigh)
		}
		if z <= s.SplitPoint {
			return predictAt(ctx, t, m, row, n.Left, next+1)
		}
		return predictAt(ctx, t, m, row, n.Right, next+1)
	}
	return 0, fmt.Errorf("predicting: node %d has unknown split type %T", idx, n.Split)
}

// predictMissingNumeric handles a missing numeric value for a
// NumericSplitSpec node per MissingAction: Divide splits probability mass
// proportionally to PctTreeLeft and combines both subtrees' depths;
// Impute substitutes the node's training-time fill value (n.FillVal,
// computed by builder.computeImputeFill) and classifies it against the
// threshold exactly as a present value would be, mirroring what
// projectHyperplane already does for the extended model's FillVal (Fail
// should never be reached once a model is trained, since such a column
// would have been marked unsplittable during training and never chosen
// as a split; it falls through to the same substitution as Impute).
func predictMissingNumeric(ctx context.Context, t *Tree, m column.Matrix, row int, n *Node, idx int32, curDepth float64, s NumericSplitSpec) (float64, error) {
	if t.MissingAction == Divide {
		return predictWeightedBothSides(ctx, t, m, row, n, curDepth)
	}
	if n.FillVal <= s.Threshold {
		return predictAt(ctx, t, m, row, n.Left, curDepth+1)
	}
	return predictAt(ctx, t, m, row, n.Right, curDepth+1)
}

// predictMissingCategSubset is predictMissingNumeric's analog for a
// CategSubsetSplitSpec node: under Impute it classifies the node's
// training-time fill category (n.FillCat) against the left-branch subset
// the same way a present category would be tested.
func predictMissingCategSubset(ctx context.Context, t *Tree, m column.Matrix, row int, n *Node, idx int32, curDepth float64, s CategSubsetSplitSpec) (float64, error) {
	if t.MissingAction == Divide {
		return predictWeightedBothSides(ctx, t, m, row, n, curDepth)
	}
	if n.FillCat >= 0 && int(n.FillCat) < len(s.Left) && s.Left[n.FillCat] {
		return predictAt(ctx, t, m, row, n.Left, curDepth+1)
	}
	return predictAt(ctx, t, m, row, n.Right, curDepth+1)
}

// predictMissingSingleCateg is predictMissingNumeric's analog for a
// SingleCategSplitSpec node: under Impute it compares the node's
// training-time fill category (n.FillCat) against the chosen category.
func predictMissingSingleCateg(ctx context.Context, t *Tree, m column.Matrix, row int, n *Node, idx int32, curDepth float64, s SingleCategSplitSpec) (float64, error) {
	if t.MissingAction == Divide {
		return predictWeightedBothSides(ctx, t, m, row, n, curDepth)
	}
	if n.FillCat == s.Category {
		return predictAt(ctx, t, m, row, n.Left, curDepth+1)
	}
	return predictAt(ctx, t, m, row, n.Right, curDepth+1)
}

// predictWeightedBothSides recurses into both children and combines their
// depths weighted by PctTreeLeft, the shared mechanics behind Divide
// missing-handling and the Weighted new-category policy.
func predictWeightedBothSides(ctx context.Context, t *Tree, m column.Matrix, row int, n *Node, curDepth float64) (float64, error) {
	left, err := predictAt(ctx, t, m, row, n.Left, curDepth+1)
	if err != nil {
		return 0, err
	}
	right, err := predictAt(ctx, t, m, row, n.Right, curDepth+1)
	if err != nil {
		return 0, err
	}
	return n.PctTreeLeft*left + (1-n.PctTreeLeft)*right, nil
}

// predictNewCategory routes a row whose categorical value was never
// observed during training, per the forest's NewCatAction (spec.md
// §4.4, §4.6).
func predictNewCategory(ctx context.Context, t *Tree, m column.Matrix, row int, n *Node, idx int32, curDepth float64) (float64, error) {
	switch t.NewCatAction {
	case Weighted:
		return predictWeightedBothSides(ctx, t, m, row, n, curDepth)
	case Smallest:
		if n.PctTreeLeft < 0.5 {
			return predictAt(ctx, t, m, row, n.Left, curDepth+1)
		}
		return predictAt(ctx, t, m, row, n.Right, curDepth+1)
	case Random:
		if n.RandomSide == SideLeft {
			return predictAt(ctx, t, m, row, n.Left, curDepth+1)
		}
		return predictAt(ctx, t, m, row, n.Right, curDepth+1)
	}
	return 0, fmt.Errorf("predicting: unknown new-category action %v", t.NewCatAction)
}

func projectHyperplane(m column.Matrix, row int, s HyperplaneSplitSpec) float64 {
	var z float64
	for i, col := range s.ColNum {
		switch s.ColType[i] {
		case Numeric:
			v := m.Numeric(row, col)
			if column.IsMissingNumeric(v) {
				v = s.FillVal[i]
			}
			z += s.Coef[i] * v
		case Categorical:
			v := m.Categorical(row, col)
			ncat := m.NumCategories(col)
			if v < 0 {
				z += s.FillVal[i]
				continue
			}
			if int(v) >= ncat {
				z += s.FillNew[i]
				continue
			}
			if s.CatCoef != nil && s.CatCoef[i] != nil {
				z += s.CatCoef[i][v]
			} else if int(v) == int(s.ChosenCat[i]) {
				z += s.Coef[i]
			}
		}
	}
	return z
}
