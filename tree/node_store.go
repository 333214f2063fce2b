package tree

import (
	"context"
)

// NodeStore manages where a tree's nodes are kept. All methods take a
// context that implementations may use to allow cancellation, mirroring
// the teacher's tree.NodeStore. Unlike the teacher (whose nodes carry
// random string IDs, since a distributed tree could be built by several
// workers racing to claim node slots), node identity here is a dense
// int32 index: a single tree is always built single-threaded (spec.md
// §5), so append is the only mutation the builder needs and a growable
// slice suffices for the in-memory case; store/redisstore and
// store/sqlstore provide persisted implementations for large forests.
type NodeStore interface {
	// Append adds a new node to the store and returns its index.
	Append(ctx context.Context, n *Node) (int32, error)
	// Get returns the node at the given index, or an error if it cannot
	// be retrieved.
	Get(ctx context.Context, idx int32) (*Node, error)
	// Set overwrites the node at the given existing index.
	Set(ctx context.Context, idx int32, n *Node) error
	// Len returns the number of nodes currently in the store.
	Len(ctx context.Context) (int32, error)
	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

type memoryNodeStore struct {
	nodes []*Node
}

// NewMemoryNodeStore returns a NodeStore backed by process memory, the
// default used while a tree is under construction and for small forests
// kept resident for prediction.
func NewMemoryNodeStore() NodeStore {
	return &memoryNodeStore{}
}

func (mns *memoryNodeStore) Append(ctx context.Context, n *Node) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	mns.nodes = append(mns.nodes, n)
	return int32(len(mns.nodes) - 1), nil
}

func (mns *memoryNodeStore) Get(ctx context.Context, idx int32) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(mns.nodes) {
		return nil, nil
	}
	return mns.nodes[idx], nil
}

func (mns *memoryNodeStore) Set(ctx context.Context, idx int32, n *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mns.nodes[idx] = n
	return nil
}

func (mns *memoryNodeStore) Len(ctx context.Context) (int32, error) {
	return int32(len(mns.nodes)), nil
}

func (mns *memoryNodeStore) Close(ctx context.Context) error {
	return nil
}

// Nodes returns the store's backing slice directly, for callers (forest
// serialization, the similarity pass) that need fast non-contextual
// iteration over an already-built, immutable tree.
func (mns *memoryNodeStore) Nodes() []*Node {
	return mns.nodes
}
