package forest

import (
	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/isoerr"
	"github.com/arborix/isoforest/tree"
)

// validate checks the §7 InvalidArgument conditions that must be reported
// before any allocation: a sample size that cannot be honored without
// replacement, a probability cascade summing past 1, an extended-model
// dimensionality exceeding the available columns, and Divide missing
// handling requested for the extended model (valid only for the
// single-variable builder per spec.md §6).
func (p Params) validate(m column.Matrix, extended bool) error {
	nrows := m.NumRows()
	sampleSize := p.sampleSize(nrows)
	if !p.WithReplacement && sampleSize > nrows {
		return isoerr.ErrSampleSizeExceedsRows
	}
	sum := p.Probabilities.PickByGainAvg + p.Probabilities.PickByGainPl +
		p.Probabilities.SplitByGainAvg + p.Probabilities.SplitByGainPl
	if sum > 1 {
		return isoerr.ErrProbabilitiesExceedOne
	}
	numCols := m.NumericCols() + m.CategoricalCols()
	if extended && p.Ndim > numCols {
		return isoerr.ErrNdimExceedsColumns
	}
	if extended && p.MissingAction == tree.Divide {
		return isoerr.ErrDivideOnlyForSingleVariable
	}
	return nil
}
