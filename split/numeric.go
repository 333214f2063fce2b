package split

import (
	"math"
	"sort"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
)

// NumericResult is the outcome of evaluating a numeric column as a split
// candidate.
type NumericResult struct {
	Unsplittable bool
	Threshold    float64
	Gain         float64 // only meaningful when guided
	RangeLow     float64
	RangeHigh    float64
}

// Numeric evaluates column col of m over the active rows ixArr[st:end)
// under the given criterion (NoCriterion for a uniformly random
// threshold draw). Missing values are skipped entirely: the caller is
// expected to have already routed them according to the MissingAction in
// effect, per spec.md §4.4.
func Numeric(m column.Matrix, col int, ixArr []int32, st, end int32, crit Criterion, src *rng.Source) NumericResult {
	lo, hi, present := presentRange(m, col, ixArr, st, end)
	if present < 2 || lo == hi {
		return NumericResult{Unsplittable: true}
	}
	if crit == NoCriterion {
		return NumericResult{Threshold: src.Uniform(lo, hi), RangeLow: lo, RangeHigh: hi}
	}
	return guidedNumeric(m, col, ixArr, st, end, crit, lo, hi)
}

func presentRange(m column.Matrix, col int, ixArr []int32, st, end int32) (lo, hi float64, present int) {
	first := true
	for i := st; i < end; i++ {
		v := m.Numeric(int(ixArr[i]), col)
		if column.IsMissingNumeric(v) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
		} else {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		present++
	}
	return lo, hi, present
}

// guidedNumeric sorts the present rows by value and scans every
// candidate split position, scoring each with the selected criterion
// using numerically stable running sums (Kahan compensation), per
// spec.md §4.3 and §9's note on long-double-equivalent accumulation.
func guidedNumeric(m column.Matrix, col int, ixArr []int32, st, end int32, crit Criterion, lo, hi float64) NumericResult {
	vals := make([]float64, 0, end-st)
	for i := st; i < end; i++ {
		v := m.Numeric(int(ixArr[i]), col)
		if column.IsMissingNumeric(v) {
			continue
		}
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	n := len(vals)

	totalSum, totalSumSq := kahanSumAndSumSq(vals)
	bestGain := -1.0
	bestThreshold := vals[0]
	found := false

	var leftSum, leftSumSq kahanAccum
	for i := 0; i < n-1; i++ {
		leftSum.add(vals[i])
		leftSumSq.add(vals[i] * vals[i])
		if vals[i] == vals[i+1] {
			continue // only evaluate thresholds between distinct values
		}
		nl := i + 1
		nr := n - nl
		rightSum := totalSum - leftSum.value
		rightSumSq := totalSumSq - leftSumSq.value

		var gain float64
		switch crit {
		case Averaged:
			sdParent := stddev(totalSum, totalSumSq, n)
			sdL := stddev(leftSum.value, leftSumSq.value, nl)
			sdR := stddev(rightSum, rightSumSq, nr)
			gain = sdParent - (float64(nl)*sdL+float64(nr)*sdR)/float64(n)
		case Pooled:
			sdParent := stddev(totalSum, totalSumSq, n)
			sdL := stddev(leftSum.value, leftSumSq.value, nl)
			sdR := stddev(rightSum, rightSumSq, nr)
			gain = sdParent*sdParent - (float64(nl)*sdL*sdL+float64(nr)*sdR*sdR)/float64(n)
		}
		if !found || gain > bestGain {
			bestGain = gain
			bestThreshold = (vals[i] + vals[i+1]) / 2
			found = true
		}
	}
	if !found {
		return NumericResult{Unsplittable: true}
	}
	return NumericResult{Threshold: bestThreshold, Gain: bestGain, RangeLow: lo, RangeHigh: hi}
}

func stddev(sum, sumSq float64, n int) float64 {
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

// kahanAccum is a Kahan-compensated running sum, standing in for the
// original's long-double accumulators (spec.md §9) since Go has no wider
// floating type to reach for.
type kahanAccum struct {
	value float64
	c     float64
}

func (k *kahanAccum) add(x float64) {
	y := x - k.c
	t := k.value + y
	k.c = (t - k.value) - y
	k.value = t
}

func kahanSumAndSumSq(vals []float64) (sum, sumSq float64) {
	var s, sq kahanAccum
	for _, v := range vals {
		s.add(v)
		sq.add(v * v)
	}
	return s.value, sq.value
}
