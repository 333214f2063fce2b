// Package sqlstore persists an isolation tree's nodes to a SQL database
// through database/sql, the way set/sqlset/pgadapter persists botanic
// samples: one table, prepared statements built with fmt.Sprintf for the
// placeholder style the driver wants, context-aware throughout. Nodes
// are addressed by the same dense int32 index tree.NodeStore uses rather
// than the teacher's random string sample ids, since a tree (unlike a
// sample set) is append-only and single-writer during construction.
//
// The two concrete dialects (PostgreSQL, SQLite) live in the pgadapter
// and sqlite3adapter subpackages; this package holds the dialect-agnostic
// table management and tree.NodeStore implementation they both share.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/arborix/isoforest/tree"
)

const createTableStmt = `CREATE TABLE IF NOT EXISTS isoforest_nodes (
	tree_id INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (tree_id, idx)
)`

// placeholder renders the n-th (1-indexed) bind parameter in a dialect's
// style: "$1,$2,..." for PostgreSQL, "?,?,..." for SQLite.
type placeholder func(n int) string

// DollarPlaceholders is PostgreSQL's positional bind-parameter style.
func DollarPlaceholders(n int) string { return fmt.Sprintf("$%d", n) }

// QuestionPlaceholders is SQLite's (and MySQL's) bind-parameter style.
func QuestionPlaceholders(n int) string { return "?" }

// Store is a tree.NodeStore backed by a SQL table, holding every tree
// persisted through a given *sql.DB (distinguished by TreeID) in one
// shared table, mirroring set/sqlset/pgadapter's single `samples` table
// holding every feature's values.
type Store struct {
	db     *sql.DB
	ph     placeholder
	treeID int64

	mu   sync.Mutex
	next int32
}

// Open ensures the backing table exists and returns a Store over db for
// the given treeID, using ph to render bind parameters in db's dialect.
func Open(ctx context.Context, db *sql.DB, ph placeholder, treeID int64) (*Store, error) {
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		return nil, fmt.Errorf("ensuring isoforest_nodes table exists: %v", err)
	}
	row := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM isoforest_nodes WHERE tree_id = %s`, ph(1)), treeID)
	var n int32
	if err := row.Scan(&n); err != nil {
		return nil, fmt.Errorf("counting existing nodes for tree %d: %v", treeID, err)
	}
	return &Store{db: db, ph: ph, treeID: treeID, next: n}, nil
}

func (s *Store) Append(ctx context.Context, n *tree.Node) (int32, error) {
	payload, err := encodeNode(n)
	if err != nil {
		return 0, fmt.Errorf("appending node: %v", err)
	}
	s.mu.Lock()
	idx := s.next
	s.next++
	s.mu.Unlock()
	stmt := fmt.Sprintf(`INSERT INTO isoforest_nodes (tree_id, idx, payload) VALUES (%s, %s, %s)`, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, stmt, s.treeID, idx, payload); err != nil {
		return 0, fmt.Errorf("inserting node %d: %v", idx, err)
	}
	return idx, nil
}

func (s *Store) Get(ctx context.Context, idx int32) (*tree.Node, error) {
	stmt := fmt.Sprintf(`SELECT payload FROM isoforest_nodes WHERE tree_id = %s AND idx = %s`, s.ph(1), s.ph(2))
	row := s.db.QueryRowContext(ctx, stmt, s.treeID, idx)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("retrieving node %d: %v", idx, err)
	}
	n, err := decodeNode([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("retrieving node %d: %v", idx, err)
	}
	return n, nil
}

func (s *Store) Set(ctx context.Context, idx int32, n *tree.Node) error {
	payload, err := encodeNode(n)
	if err != nil {
		return fmt.Errorf("updating node %d: %v", idx, err)
	}
	stmt := fmt.Sprintf(`UPDATE isoforest_nodes SET payload = %s WHERE tree_id = %s AND idx = %s`, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, stmt, payload, s.treeID, idx); err != nil {
		return fmt.Errorf("updating node %d: %v", idx, err)
	}
	return nil
}

func (s *Store) Len(ctx context.Context) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

var _ tree.NodeStore = (*Store)(nil)
