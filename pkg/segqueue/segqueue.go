package segqueue

import (
	"fmt"
	"math"

	"github.com/i5heu/GoSegQueue/pkg/segment"
)

// ErrUnderflow is returned by Dequeue when the queue holds no element.
// It wraps segment.ErrUnderflow.
var ErrUnderflow = fmt.Errorf("segqueue: %w", segment.ErrUnderflow)

// handle addresses a node in the queue's arena.
type handle int

const nilHandle handle = -1

type node struct {
	seg  *segment.Segment
	next handle
}

// SegmentInfo describes one segment at the time Segments was called.
type SegmentInfo struct {
	Capacity int
	Len      int
}

// SegmentedQueue is an unbounded FIFO queue of ints made of a ring of segments.
// The tail segment takes new values; the segment after it (the head) gives them back.
type SegmentedQueue struct {
	nodes    []node   // arena, owns every segment
	free     []handle // released arena slots
	tail     handle
	segments int
	length   int
	minCap   int
	maxCap   int // maxFactor*minCap, saturated at math.MaxInt
	opts     options
}

// New creates a queue whose first segment holds minCapacity values.
// A minCapacity below 1 is replaced by DefaultMinCapacity.
func New(minCapacity int, opts ...Option) *SegmentedQueue {
	if minCapacity < 1 {
		minCapacity = DefaultMinCapacity
	}
	q := &SegmentedQueue{
		minCap: minCapacity,
		opts:   defaultOptions(),
	}
	for _, opt := range opts {
		opt(&q.opts)
	}
	q.maxCap = math.MaxInt
	if q.opts.maxFactor <= math.MaxInt/minCapacity {
		q.maxCap = q.opts.maxFactor * minCapacity
	}
	q.reset()
	return q
}

// reset discards the arena and links a single baseline segment to itself.
func (q *SegmentedQueue) reset() {
	q.nodes = q.nodes[:0]
	q.free = q.free[:0]
	h := q.alloc(q.minCap)
	q.nodes[h].next = h
	q.tail = h
	q.segments = 1
	q.length = 0
}

func (q *SegmentedQueue) alloc(capacity int) handle {
	n := node{seg: segment.New(capacity), next: nilHandle}
	var h handle
	if last := len(q.free) - 1; last >= 0 {
		h = q.free[last]
		q.free = q.free[:last]
		q.nodes[h] = n
	} else {
		h = handle(len(q.nodes))
		q.nodes = append(q.nodes, n)
	}
	if q.opts.observer != nil {
		q.opts.observer.SegmentAllocated(capacity)
	}
	return h
}

func (q *SegmentedQueue) release(h handle) {
	capacity := q.nodes[h].seg.Capacity()
	q.nodes[h].seg.Dispose()
	q.nodes[h] = node{next: nilHandle}
	q.free = append(q.free, h)
	if q.opts.observer != nil {
		q.opts.observer.SegmentReleased(capacity)
	}
}

func (q *SegmentedQueue) head() handle {
	return q.nodes[q.tail].next
}

// nextCapacity returns the capacity of the segment that follows a full one of the
// given capacity. Sizes cycle between minCap and maxFactor*minCap.
func (q *SegmentedQueue) nextCapacity(current int) int {
	// current*growthFactor > maxCap, without overflowing the product.
	if current > q.maxCap/q.opts.growthFactor {
		return q.minCap
	}
	return current * q.opts.growthFactor
}

// grow splices a new segment after the tail and makes it the tail.
func (q *SegmentedQueue) grow() {
	h := q.alloc(q.nextCapacity(q.nodes[q.tail].seg.Capacity()))
	q.nodes[h].next = q.nodes[q.tail].next
	q.nodes[q.tail].next = h
	q.tail = h
	q.segments++
}

// unlinkHead removes the head segment from the ring and releases it.
func (q *SegmentedQueue) unlinkHead() {
	h := q.head()
	q.nodes[q.tail].next = q.nodes[h].next
	q.release(h)
	q.segments--
}

// Enqueue appends v. When the tail segment is full a new segment is allocated first,
// so Enqueue never fails.
func (q *SegmentedQueue) Enqueue(v int) {
	if q.nodes[q.tail].seg.IsFull() {
		q.grow()
	}
	if err := q.nodes[q.tail].seg.Enqueue(v); err != nil {
		// A freshly grown tail is empty with a positive capacity.
		panic(fmt.Sprintf("segqueue: enqueue into tail of capacity %d: %v",
			q.nodes[q.tail].seg.Capacity(), err))
	}
	q.length++
}

// Dequeue removes and returns the oldest value. It returns ErrUnderflow when the
// queue is empty. A head segment that becomes empty is released right away unless it
// is the last one.
func (q *SegmentedQueue) Dequeue() (int, error) {
	if q.segments == 0 {
		return 0, ErrUnderflow
	}
	if q.nodes[q.head()].seg.IsEmpty() {
		if q.segments == 1 {
			return 0, ErrUnderflow
		}
		q.unlinkHead()
	}

	head := q.nodes[q.head()].seg
	v, err := head.Dequeue()
	if err != nil {
		return 0, ErrUnderflow
	}
	if head.IsEmpty() && q.segments > 1 {
		q.unlinkHead()
	}
	q.length--
	return v, nil
}

// Clear releases every segment and starts over with one empty segment of the
// minimum capacity. The queue stays usable afterwards.
func (q *SegmentedQueue) Clear() {
	h := q.head()
	for i := 0; i < q.segments; i++ {
		next := q.nodes[h].next
		q.release(h)
		h = next
	}
	q.segments = 0
	q.reset()
}

// Clone returns a deep copy of q with its own segments. The observer is not carried
// over.
func (q *SegmentedQueue) Clone() *SegmentedQueue {
	segs := make([]*segment.Segment, 0, q.segments)
	h := q.head()
	for i := 0; i < q.segments; i++ {
		segs = append(segs, q.nodes[h].seg.Clone())
		h = q.nodes[h].next
	}

	c := &SegmentedQueue{
		nodes:    make([]node, len(segs)),
		segments: len(segs),
		length:   q.length,
		minCap:   q.minCap,
		maxCap:   q.maxCap,
		opts:     q.opts,
	}
	c.opts.observer = nil
	for i, s := range segs {
		c.nodes[i] = node{seg: s, next: nilHandle}
	}
	for i := range c.nodes {
		c.nodes[i].next = handle((i + 1) % len(c.nodes))
	}
	c.tail = handle(len(c.nodes) - 1)
	return c
}

// Len returns the number of queued values.
func (q *SegmentedQueue) Len() int {
	return q.length
}

// SegmentCount returns how many segments are linked into the ring.
func (q *SegmentedQueue) SegmentCount() int {
	return q.segments
}

// MinCapacity returns the capacity of the first segment, after normalisation.
func (q *SegmentedQueue) MinCapacity() int {
	return q.minCap
}

// Segments returns capacity and occupancy of every segment, head first.
func (q *SegmentedQueue) Segments() []SegmentInfo {
	out := make([]SegmentInfo, 0, q.segments)
	h := q.head()
	for i := 0; i < q.segments; i++ {
		s := q.nodes[h].seg
		out = append(out, SegmentInfo{Capacity: s.Capacity(), Len: s.Len()})
		h = q.nodes[h].next
	}
	return out
}

// UsedSlots returns the number of queued values.
func (q *SegmentedQueue) UsedSlots() uint64 {
	return uint64(q.length)
}

// FreeSlots returns how many values fit into the tail segment before the next
// growth event.
func (q *SegmentedQueue) FreeSlots() uint64 {
	t := q.nodes[q.tail].seg
	return uint64(t.Capacity() - t.Len())
}
