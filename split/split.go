// Package split evaluates candidate splits for a single tree node: the
// numeric and categorical split rules of spec.md §4.3, the
// first-hit-wins strategy cascade that picks between them, and the
// in-place index partitioning the builder applies once a split is
// chosen. It generalizes the teacher's partition.go (whose
// NewDiscretePartition/NewContinuousPartition picked the single
// information-gain-maximizing threshold over a named feature) into
// random-or-guided draws over a plain column index, per spec.md's
// Design Note on dropping the named-feature abstraction.
package split

import (
	"math"

	"github.com/arborix/isoforest/rng"
)

// Criterion selects how a guided split scores candidate thresholds.
type Criterion int

const (
	// NoCriterion marks a fully random split: no candidate scoring.
	NoCriterion Criterion = iota
	// Averaged scores by sd(parent) - weighted average of child SDs.
	Averaged
	// Pooled scores by pooled-variance reduction (squared SDs).
	Pooled
)

// Probabilities are the node-independent probabilities of spec.md §4.3's
// strategy cascade. Their sum must lie in [0, 1]; the residual
// probability mass is fully random.
type Probabilities struct {
	PickByGainAvg  float64
	PickByGainPl   float64
	SplitByGainAvg float64
	SplitByGainPl  float64
}

// Strategy is the outcome of one cascade draw.
type Strategy int

const (
	// FullyRandom picks a random column and a random split point on it.
	FullyRandom Strategy = iota
	// GuidedPickAverage picks the column whose averaged-criterion gain is
	// highest among all still-eligible columns, then splits it with that
	// criterion.
	GuidedPickAverage
	// GuidedPickPooled is GuidedPickAverage under the pooled criterion.
	GuidedPickPooled
	// RandomColumnGuidedAverage picks a random column but a
	// gain-guided split point on it, under the averaged criterion.
	RandomColumnGuidedAverage
	// RandomColumnGuidedPooled is RandomColumnGuidedAverage under the
	// pooled criterion.
	RandomColumnGuidedPooled
)

// ChooseStrategy draws a single uniform value and walks p's cumulative
// thresholds in the order spec.md §4.3 lists them, returning the first
// one it falls under, or FullyRandom if it falls past all four.
func ChooseStrategy(p Probabilities, s *rng.Source) Strategy {
	u := s.Float64()
	cum := p.PickByGainAvg
	if u < cum {
		return GuidedPickAverage
	}
	cum += p.PickByGainPl
	if u < cum {
		return GuidedPickPooled
	}
	cum += p.SplitByGainAvg
	if u < cum {
		return RandomColumnGuidedAverage
	}
	cum += p.SplitByGainPl
	if u < cum {
		return RandomColumnGuidedPooled
	}
	return FullyRandom
}

// Criterion reports which guided criterion, if any, a Strategy implies.
func (st Strategy) Criterion() Criterion {
	switch st {
	case GuidedPickAverage, RandomColumnGuidedAverage:
		return Averaged
	case GuidedPickPooled, RandomColumnGuidedPooled:
		return Pooled
	default:
		return NoCriterion
	}
}

// Guided reports whether a Strategy requires scanning candidate split
// points rather than drawing one uniformly at random.
func (st Strategy) Guided() bool {
	return st != FullyRandom
}

// RangePenalty implements spec.md §4.3's predict-time-only additive
// penalty for a value that falls outside the node's observed training
// range: log2(1 + dist_outside/range_width). In-range values and a
// degenerate (zero-width) range are unpenalized.
func RangePenalty(value, lo, hi float64) float64 {
	width := hi - lo
	if width <= 0 {
		return 0
	}
	var distOutside float64
	switch {
	case value < lo:
		distOutside = lo - value
	case value > hi:
		distOutside = value - hi
	default:
		return 0
	}
	return math.Log2(1 + distOutside/width)
}
