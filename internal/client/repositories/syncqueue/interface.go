package syncqueue

import "context"

// Repository is the persisted FIFO of items waiting to be uploaded. Order
// follows insertion; rotating an entry re-inserts it at the tail.
type Repository interface {
	// Enqueue appends localID to the queue. Duplicate insertion is a no-op.
	Enqueue(ctx context.Context, localID string) error

	// Head returns the oldest queued localID without removing it, or
	// common.ErrQueueEmpty.
	Head(ctx context.Context) (string, error)

	// Remove deletes localID from the queue.
	Remove(ctx context.Context, localID string) error

	// MoveToTail rotates localID to the end of the queue.
	MoveToTail(ctx context.Context, localID string) error

	// Size returns the number of queued entries.
	Size(ctx context.Context) (int, error)
}
