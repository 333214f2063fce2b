package redisstore

import (
	"context"
	"os"
	"testing"

	redis "gopkg.in/redis.v5"

	"github.com/arborix/isoforest/tree"
)

// dialRedis connects to ISOFOREST_REDIS_ADDR (e.g. "localhost:6379"),
// skipping the test when it is unset since no Redis instance runs in
// this environment by default.
func dialRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("ISOFOREST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ISOFOREST_REDIS_ADDR not set, skipping Redis integration test")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	if err := rc.Ping().Err(); err != nil {
		t.Fatalf("connecting to redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { rc.Close() })
	return rc
}

func TestNodeStoreAppendGetSetRoundTripsNode(t *testing.T) {
	rc := dialRedis(t)
	ctx := context.Background()
	prefix := "isoforest_test"
	ns := NewNodeStore(rc, prefix, 11)
	t.Cleanup(func() { rc.Del(rc.Keys(prefix + ":*").Val()...) })

	leafIdx, err := ns.Append(ctx, &tree.Node{Score: 1})
	if err != nil {
		t.Fatal(err)
	}
	rootIdx, err := ns.Append(ctx, &tree.Node{
		Split:       tree.CategSubsetSplitSpec{ColNum: 0, Left: []bool{true, false, true}},
		Left:        leafIdx,
		Right:       leafIdx,
		PctTreeLeft: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := ns.Get(ctx, rootIdx)
	if err != nil {
		t.Fatal(err)
	}
	split, ok := got.Split.(tree.CategSubsetSplitSpec)
	if !ok {
		t.Fatalf("got.Split = %T, want tree.CategSubsetSplitSpec", got.Split)
	}
	if len(split.Left) != 3 || !split.Left[0] || split.Left[1] || !split.Left[2] {
		t.Errorf("round-tripped subset = %v, want [true false true]", split.Left)
	}

	if err := ns.Set(ctx, rootIdx, &tree.Node{Split: tree.CategSubsetSplitSpec{ColNum: 0, Left: []bool{false, true, false}}}); err != nil {
		t.Fatal(err)
	}
	got2, err := ns.Get(ctx, rootIdx)
	if err != nil {
		t.Fatal(err)
	}
	if !got2.Split.(tree.CategSubsetSplitSpec).Left[1] {
		t.Errorf("Set did not overwrite node %d", rootIdx)
	}

	n, err := ns.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestNodeStoreScopesByTreeID(t *testing.T) {
	rc := dialRedis(t)
	ctx := context.Background()
	prefix := "isoforest_test_scope"
	t.Cleanup(func() { rc.Del(rc.Keys(prefix + ":*").Val()...) })

	ns1 := NewNodeStore(rc, prefix, 1)
	ns2 := NewNodeStore(rc, prefix, 2)

	if _, err := ns1.Append(ctx, &tree.Node{Score: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := ns2.Append(ctx, &tree.Node{Score: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := ns2.Append(ctx, &tree.Node{Score: 3}); err != nil {
		t.Fatal(err)
	}

	n1, err := ns1.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := ns2.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n1 != 1 {
		t.Errorf("tree 1 Len() = %d, want 1", n1)
	}
	if n2 != 2 {
		t.Errorf("tree 2 Len() = %d, want 2", n2)
	}
}
