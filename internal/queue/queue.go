package queue

import "github.com/i5heu/GoSegQueue/pkg/segqueue"

// Validation is a *type constraint* that ensures any type Q has these methods.
// We never store Q in a runtime interface,
// we only use Validation at compile time to ensure matching signatures.
type Validation interface {
	// Enqueue adds an element to the queue. It never fails; the queue grows instead.
	Enqueue(int)

	// Dequeue removes and returns the oldest element.
	// If the queue is empty it returns 0 and a non-nil error.
	Dequeue() (int, error)

	// FreeSlots returns how many more elements fit before the next growth event.
	FreeSlots() uint64

	// UsedSlots returns how many elements are currently queued.
	UsedSlots() uint64

	// SegmentCount returns the number of backing segments.
	SegmentCount() int
}

// Compile-time enforcement that the segmented queue satisfies Validation.
func enforce[Q Validation](Q) {}

var _ = enforce[*segqueue.SegmentedQueue]
