package rng

import "testing"

func TestSampleWithoutReplacementDistinct(t *testing.T) {
	s := NewSource(1, 0)
	sample := SampleWithoutReplacement(s, 100, 20)
	if len(sample) != 20 {
		t.Fatalf("len(sample) = %d, want 20", len(sample))
	}
	seen := make(map[int32]bool)
	for _, r := range sample {
		if seen[r] {
			t.Fatalf("row %d drawn twice", r)
		}
		seen[r] = true
		if r < 0 || r >= 100 {
			t.Fatalf("row %d out of range", r)
		}
	}
}

func TestSampleWithoutReplacementFullIsShuffle(t *testing.T) {
	s := NewSource(1, 0)
	sample := SampleWithoutReplacement(s, 50, 50)
	if len(sample) != 50 {
		t.Fatalf("len(sample) = %d, want 50", len(sample))
	}
	seen := make(map[int32]bool)
	for _, r := range sample {
		seen[r] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected all 50 rows present, got %d distinct", len(seen))
	}
}

func TestSampleWithReplacementCanRepeat(t *testing.T) {
	s := NewSource(2, 0)
	sample := SampleWithReplacement(s, 2, 1000)
	counts := map[int32]int{}
	for _, r := range sample {
		counts[r]++
	}
	if len(counts) > 2 {
		t.Fatalf("got more distinct rows than exist: %v", counts)
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Errorf("expected both rows drawn at least once over 1000 draws, got %v", counts)
	}
}

func TestWeightedTreeDrawsAllWithoutRepeat(t *testing.T) {
	weights := []float64{1, 5, 0, 3, 2}
	wt := NewWeightedTree(weights)
	s := NewSource(3, 0)
	draws := wt.WeightedShuffle(s)
	if len(draws) != len(weights) {
		t.Fatalf("len(draws) = %d, want %d", len(draws), len(weights))
	}
	seen := make(map[int32]bool)
	for _, d := range draws {
		if seen[d] {
			t.Fatalf("row %d drawn twice", d)
		}
		seen[d] = true
	}
}

func TestWeightedTreeZeroWeightRowDrawnLast(t *testing.T) {
	// a row with weight 0 should still eventually surface (weighted
	// shuffle must produce every row even if its probability of an
	// early draw is zero).
	weights := []float64{0, 1}
	wt := NewWeightedTree(weights)
	s := NewSource(4, 0)
	draws := wt.WeightedShuffle(s)
	if len(draws) != 2 {
		t.Fatalf("len(draws) = %d, want 2", len(draws))
	}
	if draws[1] != 0 {
		t.Errorf("draws = %v, want the zero-weight row 0 last", draws)
	}
}

func TestColumnSamplerUniformPicksOnlyFromCandidates(t *testing.T) {
	cs := NewColumnSampler(nil, false)
	s := NewSource(5, 0)
	candidates := []int{2, 4, 7}
	for i := 0; i < 50; i++ {
		picked := cs.Pick(s, candidates, nil)
		found := false
		for _, c := range candidates {
			if c == picked {
				found = true
			}
		}
		if !found {
			t.Fatalf("Pick returned %d, not among candidates %v", picked, candidates)
		}
	}
}

func TestColumnSamplerSingleCandidate(t *testing.T) {
	cs := NewColumnSampler(nil, false)
	s := NewSource(6, 0)
	if got := cs.Pick(s, []int{9}, nil); got != 9 {
		t.Errorf("Pick with single candidate = %d, want 9", got)
	}
}
