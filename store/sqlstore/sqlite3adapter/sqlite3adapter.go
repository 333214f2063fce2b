// Package sqlite3adapter opens a sqlstore.Store backed by a local SQLite
// file, the Go analog of set/sqlset's sqlite3 adapter for isolation-tree
// node persistence instead of botanic samples.
package sqlite3adapter

import (
	"context"
	"database/sql"
	"fmt"

	// Import of SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/arborix/isoforest/store/sqlstore"
	"github.com/arborix/isoforest/tree"
)

// Open opens the SQLite database at path and returns a tree.NodeStore
// over it for treeID.
func Open(ctx context.Context, path string, treeID int64) (tree.NodeStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database %s: %v", path, err)
	}
	s, err := sqlstore.Open(ctx, db, sqlstore.QuestionPlaceholders, treeID)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
