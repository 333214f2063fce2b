package redisstore

import (
	"context"
	"fmt"
	"strconv"

	redis "gopkg.in/redis.v5"
)

// TaskQueue distributes "build tree i of this forest" tasks across
// several worker processes, the Go analog of queue/redisq.Queue
// generalized from an arbitrary queue.Task payload to a plain tree
// index: every task this queue ever holds is just "build tree i", so a
// bare int is the task, and no EncodeDecoder is needed. Pending and
// running tree indices are tracked in two Redis sets exactly as
// queue/redisq tracks pending/running task ids; SMove's atomicity
// removes the need for redisq's withLockFor wrapper, since there is no
// task payload to update alongside the set membership.
type TaskQueue struct {
	rc     *redis.Client
	prefix string
}

// NewTaskQueue returns a TaskQueue over rc, namespacing its Redis keys
// under prefix so several forests can share one Redis database.
func NewTaskQueue(rc *redis.Client, prefix string) *TaskQueue {
	return &TaskQueue{rc: rc, prefix: prefix}
}

// Push makes tree index i available for a worker to claim.
func (q *TaskQueue) Push(ctx context.Context, i int) error {
	if _, err := q.rc.SAdd(q.pendingKey(), strconv.Itoa(i)).Result(); err != nil {
		return fmt.Errorf("pushing tree %d to queue: %v", i, err)
	}
	return nil
}

// Pull claims one pending tree index, moving it to the running set, and
// returns it with ok=true; if the queue is empty it returns ok=false and
// a nil error.
func (q *TaskQueue) Pull(ctx context.Context) (i int, ok bool, err error) {
	member, err := q.rc.SRandMember(q.pendingKey()).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pulling a tree from queue: %v", err)
	}
	moved, err := q.rc.SMove(q.pendingKey(), q.runningKey(), member).Result()
	if err != nil {
		return 0, false, fmt.Errorf("claiming tree %s: %v", member, err)
	}
	if !moved {
		// another worker claimed it first; let the caller retry.
		return 0, false, nil
	}
	i, err = strconv.Atoi(member)
	if err != nil {
		return 0, false, fmt.Errorf("decoding claimed tree index %q: %v", member, err)
	}
	return i, true, nil
}

// Complete marks tree index i as finished, removing it from the running set.
func (q *TaskQueue) Complete(ctx context.Context, i int) error {
	if _, err := q.rc.SRem(q.runningKey(), strconv.Itoa(i)).Result(); err != nil {
		return fmt.Errorf("completing tree %d: %v", i, err)
	}
	return nil
}

// Drop returns tree index i to the pending set, for a worker that failed
// to build it and wants another worker to retry.
func (q *TaskQueue) Drop(ctx context.Context, i int) error {
	moved, err := q.rc.SMove(q.runningKey(), q.pendingKey(), strconv.Itoa(i)).Result()
	if err != nil {
		return fmt.Errorf("dropping tree %d: %v", i, err)
	}
	if !moved {
		return q.Push(ctx, i)
	}
	return nil
}

// Pending reports how many tree indices remain unclaimed.
func (q *TaskQueue) Pending(ctx context.Context) (int64, error) {
	return q.rc.SCard(q.pendingKey()).Result()
}

func (q *TaskQueue) pendingKey() string { return fmt.Sprintf("%s:pending", q.prefix) }
func (q *TaskQueue) runningKey() string { return fmt.Sprintf("%s:running", q.prefix) }
