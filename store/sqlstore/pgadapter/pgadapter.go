// Package pgadapter opens a sqlstore.Store backed by PostgreSQL, the Go
// analog of set/sqlset/pgadapter for isolation-tree node persistence
// instead of botanic samples.
package pgadapter

import (
	"context"
	"database/sql"
	"fmt"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/arborix/isoforest/store/sqlstore"
	"github.com/arborix/isoforest/tree"
)

// Open connects to the PostgreSQL database at url and returns a
// tree.NodeStore over it for treeID.
func Open(ctx context.Context, url string, treeID int64) (tree.NodeStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %v", err)
	}
	s, err := sqlstore.Open(ctx, db, sqlstore.DollarPlaceholders, treeID)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
