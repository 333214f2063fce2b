// Package rng provides the per-worker pseudo-random generator, row
// subsampling, weighted sampling via a balanced prefix-sum tree, and
// column sampling used by the tree builder (spec.md §4.2). It follows the
// teacher's tree/redisstore/random.go pattern of dedicating one *rand.Rand
// per concurrent actor (there: one per lock-token request; here: one per
// tree) instead of sharing Go's global source.
package rng

import (
	"math/rand"

	"github.com/montanaflynn/stats"
)

// Source is a worker-local random generator. A fixed (seed, treeIndex)
// pair always produces the same sequence, which is what gives the
// ensemble its per-tree determinism guarantee (spec.md §5).
type Source struct {
	r *rand.Rand
}

// NewSource returns a Source seeded deterministically from a base seed
// and a tree index, so that every tree in an ensemble gets an independent
// but reproducible stream.
func NewSource(randomSeed uint64, treeIndex int) *Source {
	seed := int64(randomSeed) + int64(treeIndex)*2654435761
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform random float64 in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Uniform returns a uniform random float64 in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	if lo == hi {
		return lo
	}
	return lo + s.r.Float64()*(hi-lo)
}

// Normal returns a standard-normal random float64.
func (s *Source) Normal() float64 { return s.r.NormFloat64() }

// Intn returns a uniform random int in [0, n).
func (s *Source) Intn(n int) int { return s.r.Intn(n) }

// Bool returns a fair coin flip.
func (s *Source) Bool() bool { return s.r.Intn(2) == 0 }

// SampleWithoutReplacement returns sampleSize distinct row indices drawn
// uniformly from [0, nrows) via a partial Fisher-Yates shuffle: when
// sampleSize == nrows the whole pool is shuffled, otherwise only the
// first sampleSize positions are settled.
func SampleWithoutReplacement(s *Source, nrows, sampleSize int) []int32 {
	pool := make([]int32, nrows)
	for i := range pool {
		pool[i] = int32(i)
	}
	limit := sampleSize
	if limit > nrows {
		limit = nrows
	}
	for i := 0; i < limit; i++ {
		j := i + s.Intn(nrows-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:limit]
}

// SampleWithReplacement returns sampleSize row indices, each drawn
// independently and uniformly from [0, nrows).
func SampleWithReplacement(s *Source, nrows, sampleSize int) []int32 {
	out := make([]int32, sampleSize)
	for i := range out {
		out[i] = int32(s.Intn(nrows))
	}
	return out
}

// WeightedTree is the balanced binary prefix-sum tree of spec.md §4.2:
// an array of size 2*pow2(ceil(log2 n)) whose leaves hold per-row weights
// and whose internal nodes hold the sum of their subtree. Drawing a row
// is an O(log n) descent that zeroes the drawn leaf and propagates the
// change back to the root, so a row is never drawn twice.
type WeightedTree struct {
	tree   []float64 // 1-indexed: tree[1] is the root
	offset int       // index of leaf 0 within tree
	n      int        // number of real rows (n <= len(leaves))
}

// NewWeightedTree builds a WeightedTree over the given per-row weights.
func NewWeightedTree(weights []float64) *WeightedTree {
	n := len(weights)
	leaves := nextPow2(n)
	tree := make([]float64, 2*leaves)
	offset := leaves
	for i, w := range weights {
		tree[offset+i] = w
	}
	for i := leaves - 1; i >= 1; i-- {
		tree[i] = tree[2*i] + tree[2*i+1]
	}
	return &WeightedTree{tree: tree, offset: offset, n: n}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	if p == 0 {
		p = 1
	}
	return p
}

// Total returns the current sum of all remaining weights.
func (w *WeightedTree) Total() float64 { return w.tree[1] }

// Draw descends the tree proportionally to leaf weight, zeroes the drawn
// leaf (so it cannot be drawn again) and propagates the removal up to the
// root. It returns the row index drawn. Draw must not be called when
// Total() is 0.
func (w *WeightedTree) Draw(s *Source) int32 {
	target := s.Float64() * w.tree[1]
	idx := 1
	for idx < w.offset {
		left := 2 * idx
		if target < w.tree[left] {
			idx = left
		} else {
			target -= w.tree[left]
			idx = left + 1
		}
	}
	row := idx - w.offset
	w.zero(idx)
	return int32(row)
}

func (w *WeightedTree) zero(leafIdx int) {
	w.tree[leafIdx] = 0
	for leafIdx > 1 {
		leafIdx /= 2
		w.tree[leafIdx] = w.tree[2*leafIdx] + w.tree[2*leafIdx+1]
	}
}

// WeightedShuffle draws all n rows in weighted order, equivalent to
// repeatedly calling Draw until the tree is exhausted; rows whose weight
// is zero follow at the end in index order.
func (w *WeightedTree) WeightedShuffle(s *Source) []int32 {
	out := make([]int32, 0, w.n)
	drawn := make([]bool, w.n)
	for w.Total() > 0 {
		row := w.Draw(s)
		drawn[row] = true
		out = append(out, row)
	}
	for i := 0; i < w.n; i++ {
		if !drawn[i] {
			out = append(out, int32(i))
		}
	}
	return out
}

// ColumnSampler selects a column to try splitting on, either uniformly
// among not-yet-excluded columns or weighted by user-supplied column
// weights optionally multiplied by column kurtosis (spec.md §4.2,
// "policy: per node" — recomputed fresh for each node's candidate set,
// see DESIGN.md).
type ColumnSampler struct {
	weights       []float64
	weighByKurt   bool
}

// NewColumnSampler returns a ColumnSampler over the given base column
// weights (nil or all-1 for uniform sampling) with optional
// kurtosis-weighting enabled.
func NewColumnSampler(weights []float64, weighByKurt bool) *ColumnSampler {
	return &ColumnSampler{weights: weights, weighByKurt: weighByKurt}
}

// Pick draws one column index from the given still-possible candidate
// columns, using per-node kurtosis of each candidate's values (computed
// over the active row subset) when weighByKurt is set.
func (cs *ColumnSampler) Pick(s *Source, candidates []int, valuesByCandidate [][]float64) int {
	if len(candidates) == 1 {
		return candidates[0]
	}
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		w := 1.0
		if cs.weights != nil && c < len(cs.weights) {
			w = cs.weights[c]
		}
		if cs.weighByKurt && valuesByCandidate != nil && i < len(valuesByCandidate) {
			k, err := stats.Kurtosis(stats.Float64Data(valuesByCandidate[i]))
			if err == nil && k > 0 {
				w *= k
			}
		}
		weights[i] = w
	}
	tree := NewWeightedTree(weights)
	if tree.Total() <= 0 {
		return candidates[s.Intn(len(candidates))]
	}
	return candidates[tree.Draw(s)]
}
