package builder

import (
	"context"

	"github.com/arborix/isoforest/column"
	depthpkg "github.com/arborix/isoforest/depth"
	"github.com/arborix/isoforest/rng"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// maxColumnRetries bounds how many distinct columns a node will try
// before giving up and marking itself unsplittable, when the column in
// hand turns out to be unsplittable (a constant zero-width numeric range
// or a single present category).
const maxColumnRetries = 8

// BuildTree grows one single-variable isolation tree over sampleIx
// (indices into m), implementing the Enter → SelectColumn →
// EvaluateSplit → Partition → Recurse(L) → Recurse(R) → Exit state
// machine of spec.md §4.4. treeIndex identifies this tree to
// cfg.NodeStoreFactory when the ensemble persists its trees to a shared
// backend instead of process memory.
func BuildTree(ctx context.Context, m column.Matrix, sampleIx []int32, cfg Config, src *rng.Source, treeIndex int) (*tree.Tree, error) {
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
		nodeIdx, err := buildNode(ctx, m, wm, state, cfg, src, ns, numericCols, numCols)
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

func buildNode(ctx context.Context, m column.Matrix, wm *WorkerMemory, state RecursionState, cfg Config, src *rng.Source, ns tree.NodeStore, numericCols, numCols int) (int32, error) {
	n := int(state.End - state.St)
	weightSum := rowWeightSum(cfg.RowWeights, wm.ixArr, state.St, state.End)

	if n <= 1 || weightSum == 0 || (cfg.LimitDepth && state.Depth >= cfg.MaxDepth) || allExcluded(state.ColsExcluded) {
		return ns.Append(ctx, leafNode(n))
	}

	cand, unsplittableCols, ok := selectSplit(m, wm.ixArr, state.St, state.End, state.ColsExcluded, cfg, src, numericCols, numCols)
	if !ok {
		return ns.Append(ctx, leafNode(n))
	}

	node, classify := cand.buildNode(m)
	if cfg.MissingAction == tree.Impute {
		fillVal, fillCat := computeImputeFill(m, wm.ixArr, state.St, state.End, cand)
		node.FillVal = fillVal
		node.FillCat = fillCat
		classify = imputeClassify(classify, cand, fillVal, fillCat)
	}
	naEnd, splitIx := split.Partition(wm.ixArr, state.St, state.End, classify)
	total := state.End - state.St
	leftCount := splitIx - naEnd
	rightCount := state.End - splitIx
	// missing rows (the [state.St, naEnd) band) were excluded from split
	// selection; fold them into the left/right counts proportionally so
	// pct_tree_left reflects all training rows that reached this node,
	// not just the ones used to pick the threshold.
	pctTreeLeft := 0.5
	if total > 0 {
		nonMissing := leftCount + rightCount
		if nonMissing > 0 {
			pctTreeLeft = float64(leftCount) / float64(nonMissing)
		}
	}
	node.PctTreeLeft = pctTreeLeft
	if cfg.NewCatAction == tree.Random && !cand.isNumeric {
		node.RandomSide = tree.SideLeft
		if src.Bool() {
			node.RandomSide = tree.SideRight
		}
	}

	leftExcluded := state.ColsExcluded
	rightExcluded := cloneExcluded(state.ColsExcluded)
	// Only columns discovered genuinely unsplittable in this node's
	// active subset (spec.md invariant 6) are barred from its children;
	// cand.col itself stays eligible on both sides after being used here,
	// since a single successful split does not exhaust a column.
	for _, col := range unsplittableCols {
		leftExcluded[col] = true
		rightExcluded[col] = true
	}

	idx, err := ns.Append(ctx, node)
	if err != nil {
		return 0, err
	}

	// Divide routes the NA band to both subtrees by assigning each
	// missing row left or right via a Bernoulli(pctTreeLeft) draw (an
	// approximation of the original's fractional-weight duplication
	// across both children — see DESIGN.md), then folds it into the
	// genuine left/right bands so the active range stays contiguous.
	leftSt, leftEnd := naEnd, splitIx
	rightSt, rightEnd := splitIx, state.End
	if naEnd > state.St && cfg.MissingAction == tree.Divide {
		mid := mergeNAForDivide(wm.ixArr, state.St, naEnd, splitIx, state.End, pctTreeLeft, src)
		leftSt, leftEnd = state.St, mid
		rightSt, rightEnd = mid, state.End
	}

	wm.push(RecursionState{St: rightSt, End: rightEnd, Depth: state.Depth + 1, ParentIdx: idx, IsLeft: false, ColsExcluded: rightExcluded})
	wm.push(RecursionState{St: leftSt, End: leftEnd, Depth: state.Depth + 1, ParentIdx: idx, IsLeft: true, ColsExcluded: leftExcluded})
	return idx, nil
}

// mergeNAForDivide re-lays out ixArr[st:end) from
// [naBand][genuineLeft][genuineRight] (naBand spanning [st, naEnd),
// genuineLeft/Right split at splitIx) into [naLeft+genuineLeft][naRight
// +genuineRight], and returns the index separating the two resulting
// bands.
func mergeNAForDivide(ixArr []int32, st, naEnd, splitIx, end int32, pctLeft float64, src *rng.Source) int32 {
	naLeft := make([]int32, 0, naEnd-st)
	naRight := make([]int32, 0, naEnd-st)
	for i := st; i < naEnd; i++ {
		if src.Float64() < pctLeft {
			naLeft = append(naLeft, ixArr[i])
		} else {
			naRight = append(naRight, ixArr[i])
		}
	}
	genuineLeft := append([]int32(nil), ixArr[naEnd:splitIx]...)
	genuineRight := append([]int32(nil), ixArr[splitIx:end]...)

	pos := st
	for _, v := range naLeft {
		ixArr[pos] = v
		pos++
	}
	for _, v := range genuineLeft {
		ixArr[pos] = v
		pos++
	}
	mid := pos
	for _, v := range naRight {
		ixArr[pos] = v
		pos++
	}
	for _, v := range genuineRight {
		ixArr[pos] = v
		pos++
	}
	return mid
}

func leafNode(n int) *tree.Node {
	score := depthpkg.C(n)
	return &tree.Node{Score: score, Remainder: score}
}

// computeImputeFill computes the MissingAction=Impute substitution value
// for cand's column over the active, non-missing rows in ixArr[st:end)
// (spec.md §4.4: "replace missing with the column mean (numeric) or mode
// (categorical) computed over the active subset"): the mean for a numeric
// column, or the most frequent present category (fillCat, -1 if every row
// is missing) for a categorical one.
func computeImputeFill(m column.Matrix, ixArr []int32, st, end int32, cand candidate) (fillVal float64, fillCat int32) {
	if cand.isNumeric {
		var sum float64
		var count int
		for i := st; i < end; i++ {
			v := m.Numeric(int(ixArr[i]), cand.col)
			if column.IsMissingNumeric(v) {
				continue
			}
			sum += v
			count++
		}
		if count > 0 {
			fillVal = sum / float64(count)
		}
		return fillVal, -1
	}
	catCol := cand.col - cand.numericCols
	ncat := m.NumCategories(catCol)
	counts := make([]int, ncat)
	for i := st; i < end; i++ {
		v := m.Categorical(int(ixArr[i]), catCol)
		if v < 0 || int(v) >= ncat {
			continue
		}
		counts[v]++
	}
	fillCat = -1
	best := -1
	for c, cnt := range counts {
		if cnt > best {
			best = cnt
			fillCat = int32(c)
		}
	}
	return 0, fillCat
}

// imputeClassify wraps base so a row base reports missing instead resolves
// to the side its imputed fill value (fillVal/fillCat) would take, so
// Partition routes it into a genuine left/right band instead of an NA
// band nobody re-merges — the fix for Impute silently dropping rows.
func imputeClassify(base split.Classify, cand candidate, fillVal float64, fillCat int32) split.Classify {
	return func(row int32) (missing, left bool) {
		wasMissing, baseLeft := base(row)
		if !wasMissing {
			return false, baseLeft
		}
		if cand.isNumeric {
			return false, fillVal <= cand.numeric.Threshold
		}
		if cand.isSingleCateg {
			return false, fillCat == cand.single.Category
		}
		if fillCat >= 0 && int(fillCat) < len(cand.subset.Left) {
			return false, cand.subset.Left[fillCat]
		}
		return false, false
	}
}

func rowWeightSum(weights []float64, ixArr []int32, st, end int32) float64 {
	if weights == nil {
		return float64(end - st)
	}
	var sum float64
	for i := st; i < end; i++ {
		sum += weights[ixArr[i]]
	}
	return sum
}

func allExcluded(cols []bool) bool {
	for _, v := range cols {
		if !v {
			return false
		}
	}
	return true
}

func possibleColumns(cols []bool) []int {
	out := make([]int, 0, len(cols))
	for i, excluded := range cols {
		if !excluded {
			out = append(out, i)
		}
	}
	return out
}
