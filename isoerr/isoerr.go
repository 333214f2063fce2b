// Package isoerr defines the error taxonomy described by the core engine's
// error-handling design: kinds, not types, mirroring the way the teacher
// represents its tree/prediction errors as plain typed strings
// (tree.PredictionError) rather than a hierarchy of structs.
package isoerr

// Kind identifies which of the four error categories a failure belongs to.
type Kind string

const (
	// InvalidArgument reports contradictory parameters, checked and
	// reported before any allocation.
	InvalidArgument Kind = "invalid_argument"
	// InputSchema reports column indices or categorical values that are
	// out of range for the trained model.
	InputSchema Kind = "input_schema"
	// Interrupted reports a host-requested cancellation; any forest
	// returned alongside it is a valid, consistent, partial result.
	Interrupted Kind = "interrupted"
	// OutOfMemory reports a buffer allocation failure.
	OutOfMemory Kind = "out_of_memory"
)

// Error wraps a message with the Kind it belongs to.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an *Error of the given kind with the given message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// KindOf reports err's Kind and whether err is an *Error at all, so callers can
// write `errors.Is(err, isoerr.InvalidArgument)`-style checks via
// isoerr.KindOf instead (Kind is not itself comparable to error).
func KindOf(err error) (Kind, bool) {
	ie, ok := err.(*Error)
	if !ok {
		return "", false
	}
	return ie.Kind, true
}

// Sentinel errors for the most common InvalidArgument / InputSchema cases,
// so callers can compare with errors.Is.
var (
	ErrSampleSizeExceedsRows       = New(InvalidArgument, "sample_size exceeds the number of rows without replacement")
	ErrProbabilitiesExceedOne      = New(InvalidArgument, "prob_pick_by_gain_avg + prob_pick_by_gain_pl + prob_split_by_gain_avg + prob_split_by_gain_pl exceeds 1")
	ErrNdimExceedsColumns          = New(InvalidArgument, "ndim exceeds the total number of columns")
	ErrDivideOnlyForSingleVariable = New(InvalidArgument, "missing_action=Divide is only valid for the single-variable model")
	ErrColumnOutOfRange            = New(InputSchema, "column index out of range")
	ErrCategoryOutOfRange          = New(InputSchema, "categorical value out of range for a policy that disallows unseen categories")
)
