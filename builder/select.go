package builder

import (
	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// candidate is the chosen split for one node: exactly one of the three
// result fields is populated, discriminated by isNumeric/isSingleCateg.
type candidate struct {
	col           int // global column index: [0, numericCols) numeric, rest categorical
	numericCols   int // numericCols at evaluation time, to recover the column's local index
	isNumeric     bool
	isSingleCateg bool

	numeric split.NumericResult
	subset  split.CategoricalSubsetResult
	single  split.CategoricalSingleResult

	gain float64
}

// buildNode turns a chosen candidate into its tree.Node (split spec +
// range bounds) and a split.Classify usable with split.Partition.
func (c candidate) buildNode(m column.Matrix) (*tree.Node, split.Classify) {
	if c.isNumeric {
		spec := tree.NumericSplitSpec{ColNum: c.col, Threshold: c.numeric.Threshold}
		n := &tree.Node{Split: spec, RangeLow: c.numeric.RangeLow, RangeHigh: c.numeric.RangeHigh}
		classify := func(row int32) (missing, left bool) {
			v := m.Numeric(int(row), c.col)
			if column.IsMissingNumeric(v) {
				return true, false
			}
			return false, v <= c.numeric.Threshold
		}
		return n, classify
	}
	catCol := c.col - c.numericCols
	if c.isSingleCateg {
		spec := tree.SingleCategSplitSpec{ColNum: catCol, Category: c.single.Category}
		n := &tree.Node{Split: spec}
		classify := func(row int32) (missing, left bool) {
			v := m.Categorical(int(row), catCol)
			if v < 0 {
				return true, false
			}
			return false, v == c.single.Category
		}
		return n, classify
	}
	spec := tree.CategSubsetSplitSpec{ColNum: catCol, Left: c.subset.Left}
	n := &tree.Node{Split: spec}
	classify := func(row int32) (missing, left bool) {
		v := m.Categorical(int(row), catCol)
		if v < 0 {
			return true, false
		}
		if int(v) >= len(c.subset.Left) {
			return false, false // categories beyond the subset's length stay right
		}
		return false, c.subset.Left[v]
	}
	return n, classify
}

// selectSplit implements spec.md §4.3's strategy cascade: it draws a
// Strategy, then either scores every still-possible column with the
// guided criterion and keeps the best (GuidedPick*) or draws one random
// column and evaluates it under the chosen criterion
// (RandomColumnGuided*/FullyRandom), retrying a bounded number of times
// if the drawn column turns out unsplittable. Alongside the chosen
// candidate (if any), it reports every column discovered to be
// genuinely unsplittable (zero-width numeric range, or a single present
// category) while searching, per spec.md invariant 6 — those, and only
// those, are barred from this node's descendants; a column that was
// merely used for the returned split remains eligible further down the
// same path.
func selectSplit(m column.Matrix, ixArr []int32, st, end int32, excluded []bool, cfg Config, src *rng.Source, numericCols, numCols int) (candidate, []int, bool) {
	strat := split.ChooseStrategy(cfg.Probabilities, src)
	crit := strat.Criterion()

	if strat == split.GuidedPickAverage || strat == split.GuidedPickPooled {
		return bestOverAllColumns(m, ixArr, st, end, excluded, cfg, src, numericCols, numCols, crit)
	}
	return randomColumnThenSplit(m, ixArr, st, end, excluded, cfg, src, numericCols, numCols, crit)
}

func bestOverAllColumns(m column.Matrix, ixArr []int32, st, end int32, excluded []bool, cfg Config, src *rng.Source, numericCols, numCols int, crit split.Criterion) (candidate, []int, bool) {
	var best candidate
	found := false
	var unsplittable []int
	for col := 0; col < numCols; col++ {
		if excluded[col] {
			continue
		}
		c, ok, genuinelyUnsplittable := evaluateColumn(m, ixArr, st, end, col, numericCols, crit, cfg, src)
		if genuinelyUnsplittable {
			unsplittable = append(unsplittable, col)
		}
		if !ok {
			continue
		}
		if !found || c.gain > best.gain {
			best = c
			found = true
		}
	}
	if !found {
		return candidate{}, unsplittable, false
	}
	return best, unsplittable, true
}

func randomColumnThenSplit(m column.Matrix, ixArr []int32, st, end int32, excluded []bool, cfg Config, src *rng.Source, numericCols, numCols int, crit split.Criterion) (candidate, []int, bool) {
	possible := possibleColumns(excluded)
	sampler := rng.NewColumnSampler(cfg.ColWeights, cfg.WeighByKurtosis)
	tried := make(map[int]bool)
	var unsplittable []int
	for attempt := 0; attempt < maxColumnRetries && len(tried) < len(possible); attempt++ {
		remaining := make([]int, 0, len(possible))
		for _, col := range possible {
			if !tried[col] {
				remaining = append(remaining, col)
			}
		}
		if len(remaining) == 0 {
			break
		}
		col := sampler.Pick(src, remaining, kurtosisValues(m, ixArr, st, end, remaining, numericCols, cfg.WeighByKurtosis))
		tried[col] = true
		c, ok, genuinelyUnsplittable := evaluateColumn(m, ixArr, st, end, col, numericCols, crit, cfg, src)
		if genuinelyUnsplittable {
			unsplittable = append(unsplittable, col)
		}
		if ok {
			return c, unsplittable, true
		}
	}
	return candidate{}, unsplittable, false
}

func kurtosisValues(m column.Matrix, ixArr []int32, st, end int32, cols []int, numericCols int, weighByKurt bool) [][]float64 {
	if !weighByKurt {
		return nil
	}
	out := make([][]float64, len(cols))
	for i, col := range cols {
		if col >= numericCols {
			continue
		}
		vals := make([]float64, 0, end-st)
		for r := st; r < end; r++ {
			v := m.Numeric(int(ixArr[r]), col)
			if !column.IsMissingNumeric(v) {
				vals = append(vals, v)
			}
		}
		out[i] = vals
	}
	return out
}

// evaluateColumn scores col as a split candidate, returning (candidate,
// ok, genuinelyUnsplittable). ok is false whenever col can't supply the
// returned split, for either reason: a transient one (Fail aborting on
// a missing value present in this node's active subset — a different,
// smaller subset further down could still split on it) or a permanent
// one (the column's value is a single point in this subset: a zero-width
// numeric range or a single present category). Only the latter reports
// genuinelyUnsplittable=true, since an active subset only ever shrinks
// on the way to a descendant, so a column that is a single point here
// stays one there.
func evaluateColumn(m column.Matrix, ixArr []int32, st, end int32, col int, numericCols int, crit split.Criterion, cfg Config, src *rng.Source) (candidate, bool, bool) {
	if col < numericCols {
		if cfg.MissingAction == tree.Fail && columnHasMissing(m, ixArr, st, end, col) {
			return candidate{}, false, false
		}
		r := split.Numeric(m, col, ixArr, st, end, crit, src)
		if r.Unsplittable {
			return candidate{}, false, true
		}
		return candidate{col: col, numericCols: numericCols, isNumeric: true, numeric: r, gain: r.Gain}, true, false
	}
	catCol := col - numericCols
	if cfg.CatSplitType == tree.SingleCateg {
		r := split.CategoricalSingle(m, catCol, ixArr, st, end, crit, src)
		if r.Unsplittable {
			return candidate{}, false, true
		}
		return candidate{col: col, numericCols: numericCols, isNumeric: false, isSingleCateg: true, single: r, gain: r.Gain}, true, false
	}
	r := split.CategoricalSubset(m, catCol, ixArr, st, end, crit, cfg.AllPerm, src)
	if r.Unsplittable {
		return candidate{}, false, true
	}
	return candidate{col: col, numericCols: numericCols, isNumeric: false, subset: r, gain: r.Gain}, true, false
}

func columnHasMissing(m column.Matrix, ixArr []int32, st, end int32, col int) bool {
	for i := st; i < end; i++ {
		if column.IsMissingNumeric(m.Numeric(int(ixArr[i]), col)) {
			return true
		}
	}
	return false
}
