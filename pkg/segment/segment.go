package segment

import "errors"

var (
	// ErrOverflow is returned by Enqueue when the segment has no free slot.
	ErrOverflow = errors.New("segment: overflow")
	// ErrUnderflow is returned by Dequeue when the segment holds no element.
	ErrUnderflow = errors.New("segment: underflow")
)

type kind uint8

const (
	kindRing kind = iota
	// kindSentinel marks a zero-capacity segment: full and empty at the same time.
	kindSentinel
)

// Segment is a fixed-capacity circular buffer of ints with FIFO order.
type Segment struct {
	kind  kind
	buf   []int
	head  int // next slot to dequeue from
	tail  int // next slot to enqueue into
	count int
}

// New creates a Segment holding up to capacity values.
// A capacity below 1 yields a sentinel that rejects every Enqueue and Dequeue.
func New(capacity int) *Segment {
	if capacity < 1 {
		return &Segment{kind: kindSentinel}
	}
	return &Segment{
		kind: kindRing,
		buf:  make([]int, capacity),
	}
}

// Capacity returns the fixed number of slots.
func (s *Segment) Capacity() int {
	if s.kind == kindSentinel {
		return 0
	}
	return len(s.buf)
}

// Len returns how many values are currently held.
func (s *Segment) Len() int {
	return s.count
}

// IsFull reports whether Enqueue would fail. A sentinel is always full.
func (s *Segment) IsFull() bool {
	if s.kind == kindSentinel {
		return true
	}
	return s.count >= len(s.buf)
}

// IsEmpty reports whether Dequeue would fail. A sentinel is always empty.
func (s *Segment) IsEmpty() bool {
	if s.kind == kindSentinel {
		return true
	}
	return s.count == 0
}

// IsSentinel reports whether s is the zero-capacity variant.
func (s *Segment) IsSentinel() bool {
	return s.kind == kindSentinel
}

// Enqueue appends v at the tail, or returns ErrOverflow leaving s untouched.
func (s *Segment) Enqueue(v int) error {
	if s.IsFull() {
		return ErrOverflow
	}
	s.buf[s.tail] = v
	s.tail = (s.tail + 1) % len(s.buf)
	s.count++
	return nil
}

// Dequeue removes and returns the oldest value, or returns ErrUnderflow leaving s untouched.
func (s *Segment) Dequeue() (int, error) {
	if s.IsEmpty() {
		return 0, ErrUnderflow
	}
	v := s.buf[s.head]
	s.head = (s.head + 1) % len(s.buf)
	s.count--
	return v, nil
}

// Dispose drops the storage and turns s into a sentinel. Calling it twice is a no-op.
func (s *Segment) Dispose() {
	*s = Segment{kind: kindSentinel}
}

// Clone returns a deep copy of s. The whole storage array is copied, including
// slots outside the live window.
func (s *Segment) Clone() *Segment {
	if s.kind == kindSentinel {
		return &Segment{kind: kindSentinel}
	}
	buf := make([]int, len(s.buf))
	copy(buf, s.buf)
	return &Segment{
		kind:  kindRing,
		buf:   buf,
		head:  s.head,
		tail:  s.tail,
		count: s.count,
	}
}
