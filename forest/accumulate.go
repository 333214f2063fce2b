package forest

import "context"

// depthAcc accumulates in-sample mean isolation depth per row across
// trees (spec.md §6's optional output_depths), one instance per worker
// and one merged instance for the final reduction, per §5's
// "private buffer, reduced after the join" rule.
type depthAcc struct {
	sum   []float64
	count []int
}

func newDepthAcc(nrows int) *depthAcc {
	return &depthAcc{sum: make([]float64, nrows), count: make([]int, nrows)}
}

func (a *depthAcc) add(row int, depth float64) {
	a.sum[row] += depth
	a.count[row]++
}

func (a *depthAcc) mergeFrom(o *depthAcc) {
	for i := range a.sum {
		a.sum[i] += o.sum[i]
		a.count[i] += o.count[i]
	}
}

func (a *depthAcc) means() []float64 {
	out := make([]float64, len(a.sum))
	for i := range out {
		if a.count[i] > 0 {
			out[i] = a.sum[i] / float64(a.count[i])
		}
	}
	return out
}

// tmatAcc accumulates the upper-triangular similarity matrix of spec.md
// §4.7 across trees. It is stored compactly as one float64 per unordered
// pair (i<j), indexed by pairIndex.
type tmatAcc struct {
	nrows int
	vals  []float64
}

func newTmatAcc(nrows int) *tmatAcc {
	if nrows < 2 {
		return &tmatAcc{nrows: nrows}
	}
	return &tmatAcc{nrows: nrows, vals: make([]float64, nrows*(nrows-1)/2)}
}

// pairIndex maps an unordered pair (i, j), i != j, into its position in
// the compact upper-triangular array, matching the row-major upper
// triangle layout spec.md §6 calls for (tmat[n(n-1)/2]).
func pairIndex(nrows, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*nrows - i*(i+1)/2 + (j - i - 1)
}

func (a *tmatAcc) add(i, j int, v float64) {
	if i == j || a.vals == nil {
		return
	}
	a.vals[pairIndex(a.nrows, i, j)] += v
}

func (a *tmatAcc) mergeFrom(o *tmatAcc) {
	for i := range a.vals {
		a.vals[i] += o.vals[i]
	}
}

func (a *tmatAcc) similarity(ntrees int) []float64 {
	out := make([]float64, len(a.vals))
	if ntrees <= 0 {
		return out
	}
	for i, v := range a.vals {
		out[i] = v / float64(ntrees)
	}
	return out
}

// accumulateTrainingPass implements the retrospective half of spec.md
// §4.7: for the rows sampled into one tree, walk each to its leaf and (a)
// record its depth for the on-the-fly output_depths accumulator and (b)
// for every pair of sampled rows that land in the same leaf, accumulate a
// similarity contribution into tmat. Traversal is deterministic
// (treeHandle.leafForRow) rather than Predict's Divide-weighted
// branching, since a leaf-membership notion requires a single path per
// row; this is documented as an Open Question decision in DESIGN.md.
func accumulateTrainingPass(ctx context.Context, h *treeHandle, sampleIx []int32, depths *depthAcc, tmat *tmatAcc, assumeFullDistr bool) error {
	leafOf := make(map[int32][]int32) // leaf node index -> rows landing there
	leafDepth := make(map[int32]float64)
	for _, row := range sampleIx {
		leaf, depth, err := h.leafForRow(ctx, int(row))
		if err != nil {
			return err
		}
		if depths != nil {
			depths.add(int(row), depth)
		}
		if tmat != nil {
			leafOf[leaf] = append(leafOf[leaf], row)
			leafDepth[leaf] = depth
		}
	}
	if tmat == nil {
		return nil
	}
	expDepth := h.expectedSeparation()
	for leaf, rows := range leafOf {
		if len(rows) < 2 {
			continue
		}
		remainder, err := h.remainderAt(ctx, leaf)
		if err != nil {
			return err
		}
		contribution := tmatContribution(leafDepth[leaf], remainder, expDepth, assumeFullDistr)
		for a := 0; a < len(rows); a++ {
			for b := a + 1; b < len(rows); b++ {
				tmat.add(int(rows[a]), int(rows[b]), contribution)
			}
		}
	}
	return nil
}

// tmatContribution implements spec.md §4.7's two accumulation formulas
// for a pair of rows sharing a leaf: under assume_full_distr, the
// contribution uses the leaf's unspent remainder (the expected depth a
// fuller tree would still need to separate them); otherwise it uses how
// far the shared leaf depth falls short of the expected full-isolation
// depth. See DESIGN.md for why remainder/sharedDepth (rather than a
// separately tracked divergence point) stand in for the original's
// remaining_depth/shared_depth.
func tmatContribution(sharedDepth, remainder, expectedDepth float64, assumeFullDistr bool) float64 {
	if expectedDepth <= 0 {
		return 0
	}
	if assumeFullDistr {
		return 1 - remainder/expectedDepth
	}
	return (expectedDepth - sharedDepth) / expectedDepth
}
