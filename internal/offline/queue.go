package offline

import (
	"sync"
	"time"
)

type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// PendingOp is a mutation that could not reach the backend.
// ID is the target record; for creates it equals TempID.
type PendingOp[T any] struct {
	Kind       OpKind
	ID         string
	TempID     string
	Payload    T
	Seq        uint64
	EnqueuedAt time.Time
}

// Queue is an in-memory FIFO of pending mutations. Nothing is persisted.
// Ops are removed by identity, so entries enqueued during a replay survive it.
type Queue[T any] struct {
	mu  sync.Mutex
	ops []*PendingOp[T]
	seq uint64
}

func NewQueue[T any]() *Queue[T] { return &Queue[T]{} }

func (q *Queue[T]) Enqueue(op *PendingOp[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	op.Seq = q.seq
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = time.Now()
	}
	q.ops = append(q.ops, op)
}

// Snapshot returns the queued ops in FIFO order.
func (q *Queue[T]) Snapshot() []*PendingOp[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*PendingOp[T], len(q.ops))
	copy(out, q.ops)
	return out
}

// Remove drops exactly the given ops and returns how many were found.
func (q *Queue[T]) Remove(done ...*PendingOp[T]) int {
	if len(done) == 0 {
		return 0
	}
	drop := make(map[*PendingOp[T]]struct{}, len(done))
	for _, op := range done {
		drop[op] = struct{}{}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.ops[:0]
	n := 0
	for _, op := range q.ops {
		if _, ok := drop[op]; ok {
			n++
			continue
		}
		kept = append(kept, op)
	}
	clear(q.ops[len(kept):])
	q.ops = kept
	return n
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

func (q *Queue[T]) IsEmpty() bool { return q.Len() == 0 }
