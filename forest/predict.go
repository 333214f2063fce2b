package forest

import (
	"context"
	"math"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/depth"
	"github.com/arborix/isoforest/tree"
)

// Predict implements spec.md §4.6/§6: for every row of m it averages
// tree.Predict's expected depth across all trees, then standardizes it
// into the anomaly score s = 2^(-E[depth]/c(SampleSize)) (higher is more
// anomalous), unless the forest was built with Params.RawDepth, in which
// case the raw mean depth is returned instead. Rows and trees are walked
// sequentially; traversal only reads the immutable forest.
func (b *base) Predict(ctx context.Context, m column.Matrix) ([]float64, error) {
	nrows := m.NumRows()
	out := make([]float64, nrows)
	if len(b.Trees) == 0 {
		return out, nil
	}
	expC := depth.C(b.SampleSize)
	for row := 0; row < nrows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var sum float64
		for _, t := range b.Trees {
			d, err := tree.Predict(ctx, t, m, row)
			if err != nil {
				return nil, err
			}
			sum += d
		}
		meanDepth := sum / float64(len(b.Trees))
		if b.RawDepth || expC <= 0 {
			out[row] = meanDepth
			continue
		}
		out[row] = math.Pow(2, -meanDepth/expC)
	}
	return out, nil
}
