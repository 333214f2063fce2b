package forest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arborix/isoforest/column"
)

// Similarity implements spec.md §4.7: for every tree, every pair of rows
// of m that end at the same leaf gets an accumulated contribution (the
// assumeFullDistr-selected formula of tmatContribution), reduced across
// trees and divided by len(Trees). The result is the compact
// upper-triangular buffer of spec.md §6 (nrows*(nrows-1)/2 entries,
// indexed by pairIndex), in [0, 1]. Trees are processed by a worker pool
// identical in shape to Fit's (§5: "the reason per-thread accumulators
// exist"), since this pass is the O(ntrees*n^2) one the spec calls out as
// the expensive one.
func (b *base) Similarity(ctx context.Context, m column.Matrix, assumeFullDistr bool) ([]float64, error) {
	nrows := m.NumRows()
	acc := newTmatAcc(nrows)
	if len(b.Trees) == 0 || nrows < 2 {
		return acc.similarity(1), nil
	}

	jobs := make(chan int, len(b.Trees))
	for i := range b.Trees {
		jobs <- i
	}
	close(jobs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	numWorkers := len(b.Trees)
	if numWorkers > 16 {
		numWorkers = 16
	}
	for w := 0; w < numWorkers; w++ {
		g.Go(func() error {
			local := newTmatAcc(nrows)
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				h := &treeHandle{t: b.Trees[i], m: m}
				rows := make([]int32, nrows)
				for r := range rows {
					rows[r] = int32(r)
				}
				if err := accumulateTrainingPass(gctx, h, rows, nil, local, assumeFullDistr); err != nil {
					return err
				}
			}
			mu.Lock()
			defer mu.Unlock()
			acc.mergeFrom(local)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return acc.similarity(len(b.Trees)), nil
}

// Distance returns 1-Similarity element-wise (spec.md §4.7
// "if standardize_dist, return 1 - similarity"), the form most similarity
// search and clustering callers of an isolation forest actually want.
func (b *base) Distance(ctx context.Context, m column.Matrix, assumeFullDistr bool) ([]float64, error) {
	sim, err := b.Similarity(ctx, m, assumeFullDistr)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(sim))
	for i, s := range sim {
		out[i] = 1 - s
	}
	return out, nil
}
