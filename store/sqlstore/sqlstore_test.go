package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arborix/isoforest/tree"
)

// openMemDB opens a fresh in-process SQLite database, the same driver
// sqlite3adapter wraps, so sqlstore's dialect-agnostic table management
// and Store methods can be exercised without a live server.
func openMemDB(t *testing.T) *sql.DB {
	// A plain ":memory:" DSN gives every pooled connection its own
	// throwaway database; cache=shared plus a single open connection
	// keeps every query in this test against the same in-memory schema.
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreAppendGetSetRoundTripsNode(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	s, err := Open(ctx, db, QuestionPlaceholders, 1)
	if err != nil {
		t.Fatal(err)
	}

	leaf := &tree.Node{Score: 1.5, Remainder: 1.5}
	leafIdx, err := s.Append(ctx, leaf)
	if err != nil {
		t.Fatal(err)
	}
	if leafIdx != 0 {
		t.Fatalf("first appended index = %d, want 0", leafIdx)
	}

	root := &tree.Node{
		Split:       tree.NumericSplitSpec{ColNum: 2, Threshold: 0.75},
		Left:        leafIdx,
		Right:       leafIdx,
		PctTreeLeft: 0.6,
		RangeLow:    -1,
		RangeHigh:   3,
	}
	rootIdx, err := s.Append(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if rootIdx != 1 {
		t.Fatalf("second appended index = %d, want 1", rootIdx)
	}

	got, err := s.Get(ctx, rootIdx)
	if err != nil {
		t.Fatal(err)
	}
	split, ok := got.Split.(tree.NumericSplitSpec)
	if !ok {
		t.Fatalf("got.Split = %T, want tree.NumericSplitSpec", got.Split)
	}
	if split.ColNum != 2 || split.Threshold != 0.75 {
		t.Errorf("round-tripped split = %+v, want ColNum=2 Threshold=0.75", split)
	}
	if got.PctTreeLeft != 0.6 || got.RangeLow != -1 || got.RangeHigh != 3 {
		t.Errorf("round-tripped node = %+v, want PctTreeLeft=0.6 RangeLow=-1 RangeHigh=3", got)
	}

	updated := &tree.Node{Split: tree.NumericSplitSpec{ColNum: 2, Threshold: 0.9}, Left: leafIdx, Right: leafIdx}
	if err := s.Set(ctx, rootIdx, updated); err != nil {
		t.Fatal(err)
	}
	got2, err := s.Get(ctx, rootIdx)
	if err != nil {
		t.Fatal(err)
	}
	if got2.Split.(tree.NumericSplitSpec).Threshold != 0.9 {
		t.Errorf("Set did not overwrite node %d's threshold", rootIdx)
	}

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestStoreScopesNodesByTreeID(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	s1, err := Open(ctx, db, QuestionPlaceholders, 1)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := Open(ctx, db, QuestionPlaceholders, 2)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s1.Append(ctx, &tree.Node{Score: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s1.Append(ctx, &tree.Node{Score: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s2.Append(ctx, &tree.Node{Score: 3}); err != nil {
		t.Fatal(err)
	}

	n1, err := s1.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := s2.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n1 != 2 {
		t.Errorf("tree 1 Len() = %d, want 2", n1)
	}
	if n2 != 1 {
		t.Errorf("tree 2 Len() = %d, want 1", n2)
	}

	// Reopening a Store over an existing tree_id must resume numbering
	// from the row count already persisted for that tree, not start over.
	s1Again, err := Open(ctx, db, QuestionPlaceholders, 1)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := s1Again.Append(ctx, &tree.Node{Score: 4})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Errorf("index after reopening tree 1 = %d, want 2", idx)
	}
}

func TestStoreGetMissingNodeReturnsNilNoError(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	s, err := Open(ctx, db, QuestionPlaceholders, 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Get(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if n != nil {
		t.Errorf("Get on an absent index = %+v, want nil", n)
	}
}
