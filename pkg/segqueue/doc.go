// Package segqueue provides an unbounded FIFO queue of ints built from a ring of
// fixed-capacity segments.
//
// Values are written to the tail segment. When it is full a new segment is spliced in
// after it; its capacity is the tail capacity times the growth factor, or the minimum
// capacity again once that would exceed MaxFactor times the minimum. Values are read
// from the head segment, which is the one following the tail in the ring. A head
// segment is released the moment it drains, except for the last remaining segment.
//
// Segments live in an arena owned by the queue and are linked by index. The queue is
// not safe for concurrent use.
package segqueue
