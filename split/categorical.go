package split

import (
	"math"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
)

// maxBernoulliRedraws bounds the retries spec.md §4.3 allows a random
// SubSet draw that happened to put every present category on one side.
const maxBernoulliRedraws = 10

// CategoricalSubsetResult is the outcome of evaluating a categorical
// column as a SubSet split candidate: Left[c] is true when category c
// was assigned to the left branch.
type CategoricalSubsetResult struct {
	Unsplittable bool
	Left         []bool
	Gain         float64
}

// CategoricalSubset evaluates column col of m as a SubSet split over the
// active rows, either by independent Bernoulli(0.5) assignment per
// present category (crit == NoCriterion) or by a greedy gain-guided
// assignment; allPerm additionally tries every non-trivial 2-coloring of
// the present categories when their count is small enough to make that
// feasible, per spec.md §4.3.
func CategoricalSubset(m column.Matrix, col int, ixArr []int32, st, end int32, crit Criterion, allPerm bool, src *rng.Source) CategoricalSubsetResult {
	ncat := m.NumCategories(col)
	present, counts := presentCategories(m, col, ixArr, st, end, ncat)
	if len(present) < 2 {
		return CategoricalSubsetResult{Unsplittable: true}
	}
	if crit == NoCriterion {
		return randomSubset(present, ncat, src)
	}
	if allPerm && len(present) <= 20 {
		return allPermSubset(present, counts, ncat, crit)
	}
	return greedySubset(present, counts, ncat, crit)
}

func presentCategories(m column.Matrix, col int, ixArr []int32, st, end int32, ncat int) (present []int32, counts []int) {
	counts = make([]int, ncat)
	seen := make([]bool, ncat)
	for i := st; i < end; i++ {
		v := m.Categorical(int(ixArr[i]), col)
		if v < 0 || int(v) >= ncat {
			continue
		}
		counts[v]++
		if !seen[v] {
			seen[v] = true
			present = append(present, v)
		}
	}
	return present, counts
}

func randomSubset(present []int32, ncat int, src *rng.Source) CategoricalSubsetResult {
	left := make([]bool, ncat)
	for attempt := 0; attempt < maxBernoulliRedraws; attempt++ {
		anyLeft, anyRight := false, false
		for _, c := range present {
			goLeft := src.Bool()
			left[c] = goLeft
			if goLeft {
				anyLeft = true
			} else {
				anyRight = true
			}
		}
		if anyLeft && anyRight {
			return CategoricalSubsetResult{Left: left}
		}
	}
	return CategoricalSubsetResult{Unsplittable: true}
}

// greedySubset starts all present categories on the right and repeatedly
// moves whichever remaining category increases gain the most to the
// left, stopping when no move helps, per spec.md §4.3's "greedily move
// the category that most increases gain from the initially-best side."
func greedySubset(present []int32, counts []int, ncat int, crit Criterion) CategoricalSubsetResult {
	left := make([]bool, ncat)
	remaining := append([]int32(nil), present...)
	bestGain := categoricalGain(left, counts, present, crit)
	improved := true
	for improved && len(remaining) > 1 {
		improved = false
		bestIdx := -1
		bestMoveGain := bestGain
		for i, c := range remaining {
			left[c] = true
			g := categoricalGain(left, counts, present, crit)
			left[c] = false
			if g > bestMoveGain {
				bestMoveGain = g
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			left[remaining[bestIdx]] = true
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
			bestGain = bestMoveGain
			improved = true
		}
	}
	if !anyTrue(left, present) || !anyFalse(left, present) {
		return CategoricalSubsetResult{Unsplittable: true}
	}
	return CategoricalSubsetResult{Left: left, Gain: bestGain}
}

// allPermSubset tries every non-trivial 2-coloring of present (2^(k-1)-1
// of them by symmetry) and keeps the best, per spec.md §4.3's
// all_perm=true guided variant. Only used when len(present) is small.
func allPermSubset(present []int32, counts []int, ncat int, crit Criterion) CategoricalSubsetResult {
	k := len(present)
	best := CategoricalSubsetResult{Unsplittable: true}
	bestGain := -1.0
	for mask := int64(1); mask < int64(1)<<(k-1); mask++ {
		left := make([]bool, ncat)
		for i, c := range present {
			if mask&(1<<uint(i)) != 0 {
				left[c] = true
			}
		}
		g := categoricalGain(left, counts, present, crit)
		if g > bestGain {
			bestGain = g
			best = CategoricalSubsetResult{Left: left, Gain: g}
		}
	}
	return best
}

// categoricalGain scores a left/right assignment using a Gini-style sum
// of squared proportions for Averaged, or an entropy-based information
// gain for Pooled, per spec.md §4.3.
func categoricalGain(left []bool, counts []int, present []int32, crit Criterion) float64 {
	var totalL, totalR int
	for _, c := range present {
		if left[c] {
			totalL += counts[c]
		} else {
			totalR += counts[c]
		}
	}
	total := totalL + totalR
	if total == 0 || totalL == 0 || totalR == 0 {
		return 0
	}
	switch crit {
	case Pooled:
		parent := entropy(counts, present, nil)
		l := entropy(counts, present, left)
		r := entropyComplement(counts, present, left)
		return parent - (float64(totalL)*l+float64(totalR)*r)/float64(total)
	default: // Averaged, Gini-style
		parent := giniImpurity(counts, present, nil)
		l := giniImpurity(counts, present, left)
		r := giniComplement(counts, present, left)
		return parent - (float64(totalL)*l+float64(totalR)*r)/float64(total)
	}
}

func giniImpurity(counts []int, present []int32, side []bool) float64 {
	total := 0
	for _, c := range present {
		if side == nil || side[c] {
			total += counts[c]
		}
	}
	if total == 0 {
		return 0
	}
	sumSq := 0.0
	for _, c := range present {
		if side == nil || side[c] {
			p := float64(counts[c]) / float64(total)
			sumSq += p * p
		}
	}
	return 1 - sumSq
}

func giniComplement(counts []int, present []int32, left []bool) float64 {
	total := 0
	for _, c := range present {
		if !left[c] {
			total += counts[c]
		}
	}
	if total == 0 {
		return 0
	}
	sumSq := 0.0
	for _, c := range present {
		if !left[c] {
			p := float64(counts[c]) / float64(total)
			sumSq += p * p
		}
	}
	return 1 - sumSq
}

func entropy(counts []int, present []int32, side []bool) float64 {
	total := 0
	for _, c := range present {
		if side == nil || side[c] {
			total += counts[c]
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range present {
		if side == nil || side[c] {
			p := float64(counts[c]) / float64(total)
			if p > 0 {
				h -= p * math.Log2(p)
			}
		}
	}
	return h
}

func entropyComplement(counts []int, present []int32, left []bool) float64 {
	total := 0
	for _, c := range present {
		if !left[c] {
			total += counts[c]
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range present {
		if !left[c] {
			p := float64(counts[c]) / float64(total)
			if p > 0 {
				h -= p * math.Log2(p)
			}
		}
	}
	return h
}

func anyTrue(left []bool, present []int32) bool {
	for _, c := range present {
		if left[c] {
			return true
		}
	}
	return false
}

func anyFalse(left []bool, present []int32) bool {
	for _, c := range present {
		if !left[c] {
			return true
		}
	}
	return false
}

// CategoricalSingleResult is the outcome of evaluating a categorical
// column as a SingleCateg split candidate.
type CategoricalSingleResult struct {
	Unsplittable bool
	Category     int32
	Gain         float64
}

// CategoricalSingle evaluates column col of m as a SingleCateg split:
// exactly one present category routes left, all others right. A random
// draw (crit == NoCriterion) picks uniformly among present categories; a
// guided draw tries each present category as the chosen one and keeps
// the best-scoring.
func CategoricalSingle(m column.Matrix, col int, ixArr []int32, st, end int32, crit Criterion, src *rng.Source) CategoricalSingleResult {
	ncat := m.NumCategories(col)
	present, counts := presentCategories(m, col, ixArr, st, end, ncat)
	if len(present) < 2 {
		return CategoricalSingleResult{Unsplittable: true}
	}
	if crit == NoCriterion {
		return CategoricalSingleResult{Category: present[src.Intn(len(present))]}
	}
	left := make([]bool, ncat)
	bestGain := -1.0
	var best int32
	found := false
	for _, c := range present {
		left[c] = true
		g := categoricalGain(left, counts, present, crit)
		left[c] = false
		if !found || g > bestGain {
			bestGain = g
			best = c
			found = true
		}
	}
	return CategoricalSingleResult{Category: best, Gain: bestGain}
}
