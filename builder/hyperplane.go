package builder

import (
	"context"
	"math"

	"github.com/arborix/isoforest/column"
	depthpkg "github.com/arborix/isoforest/depth"
	"github.com/arborix/isoforest/rng"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// BuildHyperplaneTree grows one extended-model tree whose splits project
// cfg.Ndim columns onto a single scalar, per spec.md §4.5. It reuses the
// same RecursionState/stack discipline as BuildTree; only SelectColumn
// and EvaluateSplit differ (picking Ndim columns and a coefficient
// vector instead of one column and a threshold). treeIndex identifies
// this tree to cfg.NodeStoreFactory, as in BuildTree.
func BuildHyperplaneTree(ctx context.Context, m column.Matrix, sampleIx []int32, cfg Config, src *rng.Source, treeIndex int) (*tree.Tree, error) {
	wm := NewWorkerMemory(sampleIx)
	ns, err := openNodeStore(ctx, cfg, treeIndex)
	if err != nil {
		return nil, err
	}
	numericCols := m.NumericCols()
	numCols := numericCols + m.CategoricalCols()

	rootExcluded := make([]bool, numCols)
	wm.push(RecursionState{St: 0, End: int32(len(wm.ixArr)), Depth: 0, ParentIdx: -1, ColsExcluded: rootExcluded})

	var rootIdx int32 = -1
	for {
		state, ok := wm.pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodeIdx, err := buildHPlaneNode(ctx, m, wm, state, cfg, src, ns, numericCols, numCols)
		if err != nil {
			return nil, err
		}
		if state.ParentIdx < 0 {
			rootIdx = nodeIdx
			continue
		}
		parent, err := ns.Get(ctx, state.ParentIdx)
		if err != nil {
			return nil, err
		}
		if state.IsLeft {
			parent.Left = nodeIdx
		} else {
			parent.Right = nodeIdx
		}
		if err := ns.Set(ctx, state.ParentIdx, parent); err != nil {
			return nil, err
		}
	}

	expAvgDepth := depthpkg.C(len(sampleIx))
	expAvgSep := depthpkg.ExpectedSeparation(len(sampleIx))
	return tree.New(rootIdx, ns, cfg.NewCatAction, cfg.CatSplitType, cfg.MissingAction, cfg.PenalizeRange, expAvgDepth, expAvgSep, len(sampleIx)), nil
}

func buildHPlaneNode(ctx context.Context, m column.Matrix, wm *WorkerMemory, state RecursionState, cfg Config, src *rng.Source, ns tree.NodeStore, numericCols, numCols int) (int32, error) {
	n := int(state.End - state.St)
	weightSum := rowWeightSum(cfg.RowWeights, wm.ixArr, state.St, state.End)

	if n <= 1 || weightSum == 0 || (cfg.LimitDepth && state.Depth >= cfg.MaxDepth) {
		return ns.Append(ctx, leafNode(n))
	}

	hplane, ok := buildHyperplane(m, wm.ixArr, state.St, state.End, cfg, src, numericCols, numCols)
	if !ok {
		return ns.Append(ctx, leafNode(n))
	}

	z := make([]float64, state.End-state.St)
	for i := state.St; i < state.End; i++ {
		z[i-state.St] = projectHyperplane(m, wm.ixArr[i], hplane)
	}
	splitPoint, rangeLow, rangeHigh, gain := bestHyperplaneSplitPoint(z, cfg, src)
	_ = gain
	hplane.SplitPoint = splitPoint

	classify := func(row int32) (missing, left bool) {
		return false, projectHyperplane(m, row, hplane) <= splitPoint
	}
	_, splitIx := split.Partition(wm.ixArr, state.St, state.End, classify)

	node := &tree.Node{Split: hplane, RangeLow: rangeLow, RangeHigh: rangeHigh}
	leftCount := splitIx - state.St
	rightCount := state.End - splitIx
	if leftCount+rightCount > 0 {
		node.PctTreeLeft = float64(leftCount) / float64(leftCount+rightCount)
	}

	idx, err := ns.Append(ctx, node)
	if err != nil {
		return 0, err
	}

	wm.push(RecursionState{St: splitIx, End: state.End, Depth: state.Depth + 1, ParentIdx: idx, IsLeft: false, ColsExcluded: state.ColsExcluded})
	wm.push(RecursionState{St: state.St, End: splitIx, Depth: state.Depth + 1, ParentIdx: idx, IsLeft: true, ColsExcluded: state.ColsExcluded})
	return idx, nil
}

// buildHyperplane implements spec.md §4.5 steps 1-3: choose Ndim columns
// without replacement, draw a coefficient per column (scaled by 1/σ_c
// for numeric columns so the projection is scale-invariant), and compute
// fill values for missing/unseen inputs. Columns left with a single
// observed value in this node are dropped (simplify_hplane).
func buildHyperplane(m column.Matrix, ixArr []int32, st, end int32, cfg Config, src *rng.Source, numericCols, numCols int) (tree.HyperplaneSplitSpec, bool) {
	ndim := cfg.Ndim
	if ndim > numCols {
		ndim = numCols
	}
	chosen := rng.SampleWithoutReplacement(src, numCols, ndim)

	var spec tree.HyperplaneSplitSpec
	for _, c32 := range chosen {
		col := int(c32)
		if col < numericCols {
			lo, hi, present := column.Range(m, col, ixArr[st:end])
			if present < 2 || lo == hi {
				continue // simplify_hplane: single-valued column contributes nothing
			}
			sigma := stddevOverRange(m, col, ixArr, st, end)
			if sigma == 0 {
				continue
			}
			coef := drawCoef(src, cfg.CoefType) / sigma
			fillVal := (lo + hi) / 2
			spec.ColNum = append(spec.ColNum, col)
			spec.ColType = append(spec.ColType, tree.Numeric)
			spec.Coef = append(spec.Coef, coef)
			spec.CatCoef = append(spec.CatCoef, nil)
			spec.ChosenCat = append(spec.ChosenCat, -1)
			spec.FillVal = append(spec.FillVal, fillVal)
			spec.FillNew = append(spec.FillNew, 0)
			continue
		}
		catCol := col - numericCols
		ncat := m.NumCategories(catCol)
		present, count := column.Presence(m, catCol, ixArr[st:end])
		if count < 2 {
			continue
		}
		spec.ColNum = append(spec.ColNum, catCol)
		spec.ColType = append(spec.ColType, tree.Categorical)
		spec.FillVal = append(spec.FillVal, 0)
		if cfg.CatSplitType == tree.SingleCateg {
			chosenCat := pickPresentCategory(present, src)
			spec.Coef = append(spec.Coef, drawCoef(src, cfg.CoefType))
			spec.CatCoef = append(spec.CatCoef, nil)
			spec.ChosenCat = append(spec.ChosenCat, chosenCat)
			spec.FillNew = append(spec.FillNew, drawCoef(src, cfg.CoefType))
			continue
		}
		catCoef := make([]float64, ncat)
		for c := 0; c < ncat; c++ {
			catCoef[c] = drawCoef(src, cfg.CoefType)
		}
		spec.Coef = append(spec.Coef, 0)
		spec.CatCoef = append(spec.CatCoef, catCoef)
		spec.ChosenCat = append(spec.ChosenCat, -1)
		spec.FillNew = append(spec.FillNew, drawCoef(src, cfg.CoefType))
	}
	if len(spec.ColNum) == 0 {
		return spec, false
	}
	return spec, true
}

func drawCoef(src *rng.Source, ct CoefType) float64 {
	if ct == Normal {
		return src.Normal()
	}
	return src.Uniform(-1, 1)
}

func stddevOverRange(m column.Matrix, col int, ixArr []int32, st, end int32) float64 {
	var sum, sumSq float64
	var n int
	for i := st; i < end; i++ {
		v := m.Numeric(int(ixArr[i]), col)
		if column.IsMissingNumeric(v) {
			continue
		}
		sum += v
		sumSq += v * v
		n++
	}
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func pickPresentCategory(present []bool, src *rng.Source) int32 {
	var candidates []int32
	for c, ok := range present {
		if ok {
			candidates = append(candidates, int32(c))
		}
	}
	if len(candidates) == 0 {
		return 0
	}
	return candidates[src.Intn(len(candidates))]
}

func projectHyperplane(m column.Matrix, row int32, s tree.HyperplaneSplitSpec) float64 {
	var z float64
	for i, col := range s.ColNum {
		switch s.ColType[i] {
		case tree.Numeric:
			v := m.Numeric(int(row), col)
			if column.IsMissingNumeric(v) {
				v = s.FillVal[i]
			}
			z += s.Coef[i] * v
		case tree.Categorical:
			v := m.Categorical(int(row), col)
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

// bestHyperplaneSplitPoint implements spec.md §4.5 step 4: repeat up to
// NTry times, keeping the split point with the highest guided gain
// (Averaged, the criterion the original reserves for extended-model
// guided splits); with NTry <= 1 it draws one uniform split point.
func bestHyperplaneSplitPoint(z []float64, cfg Config, src *rng.Source) (splitPoint, lo, hi, bestGain float64) {
	lo, hi = z[0], z[0]
	for _, v := range z[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return lo, lo, hi, 0
	}
	tries := cfg.NTry
	if tries < 1 {
		tries = 1
	}
	bestGain = -1
	found := false
	for i := 0; i < tries; i++ {
		candidatePoint := src.Uniform(lo, hi)
		g := gainAtSplitPoint(z, candidatePoint)
		if !found || g > bestGain {
			bestGain = g
			splitPoint = candidatePoint
			found = true
		}
	}
	return splitPoint, lo, hi, bestGain
}

func gainAtSplitPoint(z []float64, point float64) float64 {
	var sumL, sumSqL, sumR, sumSqR float64
	var nl, nr int
	for _, v := range z {
		if v <= point {
			sumL += v
			sumSqL += v * v
			nl++
		} else {
			sumR += v
			sumSqR += v * v
			nr++
		}
	}
	if nl == 0 || nr == 0 {
		return -1
	}
	n := nl + nr
	sdL := stddevFromSums(sumL, sumSqL, nl)
	sdR := stddevFromSums(sumR, sumSqR, nr)
	sdParent := stddevFromSums(sumL+sumR, sumSqL+sumSqR, n)
	return sdParent - (float64(nl)*sdL+float64(nr)*sdR)/float64(n)
}

func stddevFromSums(sum, sumSq float64, n int) float64 {
	if n < 1 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
