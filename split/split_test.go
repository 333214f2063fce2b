package split

import (
	"testing"

	"github.com/arborix/isoforest/rng"
)

func TestChooseStrategyCascade(t *testing.T) {
	p := Probabilities{PickByGainAvg: 0.2, PickByGainPl: 0.2, SplitByGainAvg: 0.2, SplitByGainPl: 0.2}
	counts := map[Strategy]int{}
	src := rng.NewSource(1, 0)
	for i := 0; i < 4000; i++ {
		counts[ChooseStrategy(p, src)]++
	}
	if len(counts) != 5 {
		t.Errorf("expected all 5 strategies to appear over enough draws, got %d distinct", len(counts))
	}
}

func TestChooseStrategyAllResidualIsRandom(t *testing.T) {
	p := Probabilities{}
	src := rng.NewSource(2, 0)
	for i := 0; i < 50; i++ {
		if got := ChooseStrategy(p, src); got != FullyRandom {
			t.Fatalf("with zero probabilities, want FullyRandom, got %v", got)
		}
	}
}

func TestStrategyCriterion(t *testing.T) {
	cases := []struct {
		st   Strategy
		want Criterion
	}{
		{FullyRandom, NoCriterion},
		{GuidedPickAverage, Averaged},
		{GuidedPickPooled, Pooled},
		{RandomColumnGuidedAverage, Averaged},
		{RandomColumnGuidedPooled, Pooled},
	}
	for _, c := range cases {
		if got := c.st.Criterion(); got != c.want {
			t.Errorf("%v.Criterion() = %v, want %v", c.st, got, c.want)
		}
	}
}

func TestRangePenaltyZeroWidth(t *testing.T) {
	if RangePenalty(5, 3, 3) != 0 {
		t.Error("degenerate range should never penalize")
	}
}
