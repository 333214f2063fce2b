package split

import (
	"testing"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
)

func denseCateg(nrows int, values []int32, ncat int) *column.Dense {
	return column.NewDense(nrows, nil, [][]int32{values}, []int{ncat})
}

func TestCategoricalSubsetUnsplittableWithOneCategory(t *testing.T) {
	m := denseCateg(4, []int32{0, 0, 0, 0}, 3)
	ix := []int32{0, 1, 2, 3}
	r := CategoricalSubset(m, 0, ix, 0, 4, NoCriterion, false, rng.NewSource(1, 0))
	if !r.Unsplittable {
		t.Error("single present category should be unsplittable")
	}
}

func TestCategoricalSubsetRandomSplitsBothSides(t *testing.T) {
	m := denseCateg(6, []int32{0, 0, 1, 1, 2, 2}, 3)
	ix := []int32{0, 1, 2, 3, 4, 5}
	src := rng.NewSource(3, 0)
	for i := 0; i < 30; i++ {
		r := CategoricalSubset(m, 0, ix, 0, 6, NoCriterion, false, src)
		if r.Unsplittable {
			continue
		}
		anyLeft, anyRight := false, false
		for _, c := range []int32{0, 1, 2} {
			if r.Left[c] {
				anyLeft = true
			} else {
				anyRight = true
			}
		}
		if !anyLeft || !anyRight {
			t.Error("splittable result should have both sides populated")
		}
		return
	}
}

func TestCategoricalSubsetGuidedSeparatesGroups(t *testing.T) {
	// categories 0,1 each appear four times, category 2 once; guided
	// greedy should still find a split that puts categories on both sides.
	vals := []int32{0, 0, 0, 0, 1, 1, 1, 1, 2}
	m := denseCateg(len(vals), vals, 3)
	ix := make([]int32, len(vals))
	for i := range ix {
		ix[i] = int32(i)
	}
	r := CategoricalSubset(m, 0, ix, 0, int32(len(ix)), Averaged, false, rng.NewSource(1, 0))
	if r.Unsplittable {
		t.Fatal("should be splittable")
	}
}

func TestCategoricalSingleRandomPicksPresent(t *testing.T) {
	m := denseCateg(4, []int32{0, 1, 0, 1}, 2)
	ix := []int32{0, 1, 2, 3}
	r := CategoricalSingle(m, 0, ix, 0, 4, NoCriterion, rng.NewSource(5, 0))
	if r.Unsplittable {
		t.Fatal("should be splittable")
	}
	if r.Category != 0 && r.Category != 1 {
		t.Errorf("category %d not among present categories", r.Category)
	}
}

func TestCategoricalSingleGuidedPicksBest(t *testing.T) {
	vals := []int32{0, 0, 0, 1, 2}
	m := denseCateg(len(vals), vals, 3)
	ix := []int32{0, 1, 2, 3, 4}
	r := CategoricalSingle(m, 0, ix, 0, 5, Pooled, rng.NewSource(1, 0))
	if r.Unsplittable {
		t.Fatal("should be splittable")
	}
	// isolating category 0 leaves {1,2} (entropy 1) on the right, a higher
	// pooled gain than isolating 1 or 2, which leaves {0,0,0,x} behind.
	if r.Category != 0 {
		t.Errorf("Category = %d, want 0", r.Category)
	}
}
