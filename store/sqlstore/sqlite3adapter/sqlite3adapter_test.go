package sqlite3adapter

import (
	"context"
	"testing"

	"github.com/arborix/isoforest/tree"
)

func TestOpenRoundTripsNodeThroughSQLite(t *testing.T) {
	ctx := context.Background()
	ns, err := Open(ctx, "file::memory:?cache=shared&_busy_timeout=5000", 7)
	if err != nil {
		t.Fatal(err)
	}
	defer ns.Close(ctx)

	idx, err := ns.Append(ctx, &tree.Node{
		Split:       tree.SingleCategSplitSpec{ColNum: 1, Category: 2},
		PctTreeLeft: 0.4,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := ns.Get(ctx, idx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("Get returned nil for a just-appended node")
	}
	split, ok := got.Split.(tree.SingleCategSplitSpec)
	if !ok {
		t.Fatalf("got.Split = %T, want tree.SingleCategSplitSpec", got.Split)
	}
	if split.ColNum != 1 || split.Category != 2 {
		t.Errorf("round-tripped split = %+v, want ColNum=1 Category=2", split)
	}

	n, err := ns.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}
