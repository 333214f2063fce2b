package split

import (
	"math"
	"testing"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
)

func TestNumericUnsplittableWhenConstant(t *testing.T) {
	m := column.NewDense(4, [][]float64{{1, 1, 1, 1}}, nil, nil)
	ix := []int32{0, 1, 2, 3}
	r := Numeric(m, 0, ix, 0, 4, NoCriterion, rng.NewSource(1, 0))
	if !r.Unsplittable {
		t.Error("constant column should be unsplittable")
	}
}

func TestNumericRandomThresholdWithinRange(t *testing.T) {
	m := column.NewDense(5, [][]float64{{1, 2, 3, 4, 5}}, nil, nil)
	ix := []int32{0, 1, 2, 3, 4}
	src := rng.NewSource(7, 0)
	for i := 0; i < 20; i++ {
		r := Numeric(m, 0, ix, 0, 5, NoCriterion, src)
		if r.Unsplittable {
			t.Fatal("should be splittable")
		}
		if r.Threshold < 1 || r.Threshold > 5 {
			t.Errorf("threshold %v out of range [1,5]", r.Threshold)
		}
	}
}

func TestNumericIgnoresMissing(t *testing.T) {
	m := column.NewDense(4, [][]float64{{1, math.NaN(), 3, math.Inf(1)}}, nil, nil)
	ix := []int32{0, 1, 2, 3}
	r := Numeric(m, 0, ix, 0, 4, NoCriterion, rng.NewSource(1, 0))
	if r.Unsplittable {
		t.Fatal("two present values should be splittable")
	}
	if r.RangeLow != 1 || r.RangeHigh != 3 {
		t.Errorf("range = [%v, %v], want [1, 3]", r.RangeLow, r.RangeHigh)
	}
}

func TestNumericGuidedAveragedPicksSeparation(t *testing.T) {
	// Two clusters: {0,1,2} and {100,101,102}. The best split should fall
	// strictly between them.
	m := column.NewDense(6, [][]float64{{0, 1, 2, 100, 101, 102}}, nil, nil)
	ix := []int32{0, 1, 2, 3, 4, 5}
	r := Numeric(m, 0, ix, 0, 6, Averaged, rng.NewSource(1, 0))
	if r.Unsplittable {
		t.Fatal("should be splittable")
	}
	if r.Threshold <= 2 || r.Threshold >= 100 {
		t.Errorf("guided threshold %v should separate the two clusters", r.Threshold)
	}
}

func TestNumericGuidedPooledPicksSeparation(t *testing.T) {
	m := column.NewDense(6, [][]float64{{0, 1, 2, 100, 101, 102}}, nil, nil)
	ix := []int32{0, 1, 2, 3, 4, 5}
	r := Numeric(m, 0, ix, 0, 6, Pooled, rng.NewSource(1, 0))
	if r.Unsplittable {
		t.Fatal("should be splittable")
	}
	if r.Threshold <= 2 || r.Threshold >= 100 {
		t.Errorf("guided threshold %v should separate the two clusters", r.Threshold)
	}
}
