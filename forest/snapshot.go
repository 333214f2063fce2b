package forest

import "github.com/arborix/isoforest/tree"

// NewForest reconstructs a single-variable Forest from its constituent
// parts, for callers (ioutil/isojson, store/sqlstore, store/redisstore)
// that load a previously-fitted forest back from a serialized form rather
// than producing one via Fit.
func NewForest(trees []*tree.Tree, sampleSize int, rawDepth bool, nrows int, outputDepths, tmat []float64) *Forest {
	return &Forest{base{
		Trees:        trees,
		SampleSize:   sampleSize,
		RawDepth:     rawDepth,
		NRows:        nrows,
		OutputDepths: outputDepths,
		Tmat:         tmat,
	}}
}

// NewExtForest reconstructs an extended ExtForest from its constituent
// parts; see NewForest.
func NewExtForest(trees []*tree.Tree, sampleSize int, rawDepth bool, nrows int, outputDepths, tmat []float64) *ExtForest {
	return &ExtForest{base{
		Trees:        trees,
		SampleSize:   sampleSize,
		RawDepth:     rawDepth,
		NRows:        nrows,
		OutputDepths: outputDepths,
		Tmat:         tmat,
	}}
}
