package redisstore

import (
	"context"
	"testing"
)

func TestTaskQueuePushPullCompleteDrop(t *testing.T) {
	rc := dialRedis(t)
	ctx := context.Background()
	prefix := "isoforest_test_queue"
	t.Cleanup(func() { rc.Del(rc.Keys(prefix + ":*").Val()...) })

	q := NewTaskQueue(rc, prefix)
	for i := 0; i < 3; i++ {
		if err := q.Push(ctx, i); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 3 {
		t.Fatalf("Pending() = %d, want 3", pending)
	}

	claimed := map[int]bool{}
	for i := 0; i < 3; i++ {
		idx, ok, err := q.Pull(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("Pull() ok=false with %d tasks still pending", 3-i)
		}
		claimed[idx] = true
	}
	if len(claimed) != 3 {
		t.Errorf("claimed %v, want 3 distinct indices", claimed)
	}

	if _, ok, err := q.Pull(ctx); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Error("Pull() on an empty queue returned ok=true")
	}

	if err := q.Drop(ctx, 0); err != nil {
		t.Fatal(err)
	}
	pending, err = q.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 1 {
		t.Fatalf("Pending() after Drop = %d, want 1", pending)
	}

	if err := q.Complete(ctx, 1); err != nil {
		t.Fatal(err)
	}
	idx, ok, err := q.Pull(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || idx != 0 {
		t.Errorf("Pull() after Drop(0) = (%d, %v), want (0, true)", idx, ok)
	}
}
