// Package segment provides a fixed-capacity circular buffer of ints.
//
// A Segment never grows. Enqueue on a full segment returns ErrOverflow and Dequeue
// on an empty one returns ErrUnderflow; in both cases the segment is left exactly as it
// was. Segments are the building blocks of segqueue.SegmentedQueue, which chains them
// into a ring to obtain an unbounded queue.
package segment
