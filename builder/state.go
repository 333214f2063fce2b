package builder

// RecursionState is the snapshot spec.md §4.4 requires before descending
// into a subtree: the active index range, current depth, where the
// resulting node attaches in its parent, and this branch's own copy of
// which columns have proven unsplittable along the path to here. It is
// pushed onto an explicit stack (WorkerMemory.stack) instead of being
// carried on Go's call stack, bounding auxiliary memory at
// O(tree_height × snapshot_size) exactly as the teacher's
// wlattner-rf/tree/build.go buildStack/stackItem does for ordinary
// decision trees, and as botanic.BranchOut's queue.Task does by
// construction (a Task already carries everything needed to resume a
// subtree: a dataset and available-feature list).
type RecursionState struct {
	St, End      int32
	Depth        int
	ParentIdx    int32 // -1 for the root job
	IsLeft       bool  // only meaningful when ParentIdx >= 0
	ColsExcluded []bool
}

// WorkerMemory is the scratch space allocated once per tree build and
// reused across every node, mirroring the teacher's advice (and
// wlattner-rf's per-worker *rand.Rand) that per-worker mutable state
// should never be shared across concurrent tree builds.
type WorkerMemory struct {
	ixArr []int32
	stack []RecursionState
}

// NewWorkerMemory returns scratch space for a tree built over the given
// sampled row indices (copied, since the builder mutates it in place via
// split.Partition).
func NewWorkerMemory(sampleIx []int32) *WorkerMemory {
	ixArr := make([]int32, len(sampleIx))
	copy(ixArr, sampleIx)
	return &WorkerMemory{ixArr: ixArr}
}

func (wm *WorkerMemory) push(s RecursionState) {
	wm.stack = append(wm.stack, s)
}

func (wm *WorkerMemory) pop() (RecursionState, bool) {
	n := len(wm.stack)
	if n == 0 {
		return RecursionState{}, false
	}
	s := wm.stack[n-1]
	wm.stack = wm.stack[:n-1]
	return s, true
}

func cloneExcluded(cols []bool) []bool {
	out := make([]bool, len(cols))
	copy(out, cols)
	return out
}
