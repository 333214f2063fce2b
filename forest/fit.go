package forest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arborix/isoforest/builder"
	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/rng"
	"github.com/arborix/isoforest/tree"
)

// base holds the fields shared by Forest and ExtForest: the §3
// "IsoForest/ExtIsoForest" model plus the optional on-the-fly outputs of
// §4.7/§6. Embedding base in both gives each its own named type (so
// callers can't accidentally pass a single-variable Forest where an
// extended ExtForest is expected) while sharing Predict/Similarity/
// Distance without duplicating their bodies.
type base struct {
	Trees      []*tree.Tree
	SampleSize int
	RawDepth   bool

	OutputDepths []float64 // in-sample mean depth per row, nil unless Params.ComputeDepths
	Tmat         []float64 // upper-triangular similarity accumulator, nil unless Params.ComputeTmat
	NRows        int
}

// Forest is a trained single-variable isolation forest.
type Forest struct{ base }

// ExtForest is a trained extended (hyperplane) isolation forest.
type ExtForest struct{ base }

type treeBuildFunc func(ctx context.Context, m column.Matrix, sampleIx []int32, cfg builder.Config, src *rng.Source, treeIndex int) (*tree.Tree, error)

// Fit grows params.NumTrees single-variable isolation trees over data,
// per spec.md §5's fork-join ensemble driver. A context error stops the
// ensemble: trees not yet started are skipped and a tree whose build is
// interrupted is discarded. The returned *Forest then holds only the
// fully built trees, fewer than NumTrees, alongside the context error.
func Fit(ctx context.Context, data column.Matrix, params Params) (*Forest, error) {
	if err := params.validate(data, false); err != nil {
		return nil, err
	}
	params.Ndim = 1
	cfg := params.config()
	b, err := runEnsemble(ctx, data, params, cfg, builder.BuildTree)
	if b == nil {
		return nil, err
	}
	return &Forest{*b}, err
}

// FitExtended grows params.NumTrees extended hyperplane trees over data,
// per spec.md §4.5/§5. A params.Ndim below 2 is raised to 2 (a caller
// wanting the single-variable model should call Fit instead); MissingAction=Divide is
// rejected since it's only valid for the single-variable model (§6).
func FitExtended(ctx context.Context, data column.Matrix, params Params) (*ExtForest, error) {
	if err := params.validate(data, true); err != nil {
		return nil, err
	}
	if params.Ndim < 2 {
		params.Ndim = 2
	}
	cfg := params.config()
	b, err := runEnsemble(ctx, data, params, cfg, builder.BuildHyperplaneTree)
	if b == nil {
		return nil, err
	}
	return &ExtForest{*b}, err
}

// runEnsemble is the shared fork-join loop behind Fit/FitExtended,
// grounded on wlattner-rf/forest/forest.go's in/out channel worker pool
// (replacing its ad hoc channels with errgroup per SPEC_FULL.md §2) and on
// botanic.Grow's pull-task loop for single-tree construction. Each tree
// gets its own *rng.Source (derived from RandomSeed and the tree index,
// so the ensemble is reproducible, spec.md §5) and a worker writes only
// the tree indices it pulled; on-the-fly depth/tmat accumulation happens into
// private per-worker buffers reduced once after the group joins, so hot
// per-node loops never touch shared memory (§5).
func runEnsemble(ctx context.Context, data column.Matrix, params Params, cfg builder.Config, build treeBuildFunc) (*base, error) {
	nrows := data.NumRows()
	sampleSize := params.sampleSize(nrows)
	numTrees := params.numTrees()
	numWorkers := params.numWorkers()
	if numWorkers > numTrees {
		numWorkers = numTrees
	}

	trees := make([]*tree.Tree, numTrees)
	logger := newLogger(params.Verbose, "forest")

	var depthOut *depthAcc
	var tmatOut *tmatAcc
	if params.ComputeDepths {
		depthOut = newDepthAcc(nrows)
	}
	if params.ComputeTmat {
		tmatOut = newTmatAcc(nrows)
	}

	jobs := make(chan int, numTrees)
	for i := 0; i < numTrees; i++ {
		jobs <- i
	}
	close(jobs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		g.Go(func() error {
			var localDepth *depthAcc
			var localTmat *tmatAcc
			if depthOut != nil {
				localDepth = newDepthAcc(nrows)
			}
			if tmatOut != nil {
				localTmat = newTmatAcc(nrows)
			}
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				src := rng.NewSource(params.RandomSeed, i)
				sampleIx := sampleRows(src, nrows, sampleSize, params.WithReplacement, params.RowWeights)
				t, err := build(gctx, data, sampleIx, cfg, src, i)
				if err != nil {
					return err
				}
				trees[i] = t
				logger.Logf("tree %d/%d built (%d nodes)", i+1, numTrees, mustLen(gctx, t))
				if localDepth != nil || localTmat != nil {
					h := &treeHandle{t: t, m: data}
					if err := accumulateTrainingPass(gctx, h, sampleIx, localDepth, localTmat, params.AssumeFullDistrForFit()); err != nil {
						return err
					}
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if localDepth != nil {
				depthOut.mergeFrom(localDepth)
			}
			if localTmat != nil {
				tmatOut.mergeFrom(localTmat)
			}
			return nil
		})
	}
	err := g.Wait()

	// A tree whose build was cut short leaves its slot nil; only fully
	// built trees are kept.
	built := trees[:0]
	for _, t := range trees {
		if t != nil {
			built = append(built, t)
		}
	}

	b := &base{Trees: built, SampleSize: sampleSize, RawDepth: params.RawDepth, NRows: nrows}
	if depthOut != nil {
		b.OutputDepths = depthOut.means()
	}
	if tmatOut != nil {
		b.Tmat = tmatOut.similarity(numTrees)
	}
	return b, err
}

// AssumeFullDistrForFit reports which tmat accumulation formula (§4.7)
// the on-the-fly training pass should use. It is a method rather than a
// plain field read so Fit/FitExtended share one call site; the original
// names this toggle assume_full_distr in both the fit and predict paths.
func (p Params) AssumeFullDistrForFit() bool { return p.AssumeFullDistr }

// sampleRows implements spec.md §4.2's row subsampling: uniform
// with/without replacement, or weighted-without-replacement via
// rng.WeightedTree when RowWeights is set (weighted sampling with
// replacement is not specified by spec.md and falls back to uniform with
// replacement; see DESIGN.md).
func sampleRows(src *rng.Source, nrows, sampleSize int, withReplacement bool, rowWeights []float64) []int32 {
	if withReplacement {
		return rng.SampleWithReplacement(src, nrows, sampleSize)
	}
	if rowWeights != nil {
		wt := rng.NewWeightedTree(rowWeights)
		drawn := wt.WeightedShuffle(src)
		if sampleSize < len(drawn) {
			drawn = drawn[:sampleSize]
		}
		return drawn
	}
	return rng.SampleWithoutReplacement(src, nrows, sampleSize)
}

func mustLen(ctx context.Context, t *tree.Tree) int32 {
	n, err := t.Len(ctx)
	if err != nil {
		return -1
	}
	return n
}
