package forest

import (
	"context"
	"fmt"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// treeHandle pairs one tree with the column.Matrix it is being walked
// over, the unit both the on-the-fly training pass (accumulate.go) and
// the similarity pass (similarity.go) traverse.
type treeHandle struct {
	t *tree.Tree
	m column.Matrix
}

func (h *treeHandle) expectedSeparation() float64 { return h.t.ExpAvgSep }

// leafForRow walks row to its leaf deterministically: unlike
// tree.Predict, a Divide-missing or unseen-Weighted-category node never
// splits into a weighted sum of both children, since leaf membership (the
// notion tmat accumulation needs) requires a single path per row. A
// missing numeric value continues left (NumericSplitSpec's explicit
// missing branch); a missing or unseen categorical value falls through
// to whichever branch its split type's else-case reaches — right, since
// neither CategSubsetSplitSpec's membership test nor
// SingleCategSplitSpec's equality test can match a negative or
// out-of-range category. This is a documented simplification of the
// original's full per-row probability mass over multiple leaves; see
// DESIGN.md.
func (h *treeHandle) leafForRow(ctx context.Context, row int) (leafIdx int32, depth float64, err error) {
	idx := h.t.RootIdx
	var curDepth float64
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		n, err := h.t.Get(ctx, idx)
		if err != nil {
			return 0, 0, err
		}
		if n == nil {
			return 0, 0, fmt.Errorf("walking to leaf: node %d not found", idx)
		}
		if n.IsLeaf() {
			return idx, curDepth + n.Score, nil
		}
		switch s := n.Split.(type) {
		case tree.NumericSplitSpec:
			v := h.m.Numeric(row, s.ColNum)
			if column.IsMissingNumeric(v) {
				idx, curDepth = n.Left, curDepth+1
				continue
			}
			if h.t.PenalizeRange {
				curDepth += split.RangePenalty(v, n.RangeLow, n.RangeHigh)
			}
			if v <= s.Threshold {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case tree.CategSubsetSplitSpec:
			v := h.m.Categorical(row, s.ColNum)
			if v >= 0 && int(v) < len(s.Left) && s.Left[v] {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case tree.SingleCategSplitSpec:
			v := h.m.Categorical(row, s.ColNum)
			if v == s.Category {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case tree.HyperplaneSplitSpec:
			z := projectHyperplaneHandle(h.m, row, s)
			if h.t.PenalizeRange {
				curDepth += split.RangePenalty(z, n.RangeLow, n.RangeHigh)
			}
			if z <= s.SplitPoint {
				idx = n.Left
			} else {
				idx = n.Right
			}
		default:
			return 0, 0, fmt.Errorf("walking to leaf: node %d has unknown split type %T", idx, n.Split)
		}
		curDepth++
	}
}

func (h *treeHandle) remainderAt(ctx context.Context, leafIdx int32) (float64, error) {
	n, err := h.t.Get(ctx, leafIdx)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("reading leaf remainder: node %d not found", leafIdx)
	}
	return n.Remainder, nil
}

func projectHyperplaneHandle(m column.Matrix, row int, s tree.HyperplaneSplitSpec) float64 {
	var z float64
	for i, col := range s.ColNum {
		switch s.ColType[i] {
		case tree.Numeric:
			v := m.Numeric(row, col)
			if column.IsMissingNumeric(v) {
				v = s.FillVal[i]
			}
			z += s.Coef[i] * v
		case tree.Categorical:
			v := m.Categorical(row, col)
			ncat := m.NumCategories(col)
			switch {
			case v < 0:
				z += s.FillVal[i]
			case int(v) >= ncat:
				z += s.FillNew[i]
			case s.CatCoef[i] != nil:
				z += s.CatCoef[i][v]
			case v == s.ChosenCat[i]:
				z += s.Coef[i]
			}
		}
	}
	return z
}
