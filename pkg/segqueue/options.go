package segqueue

const (
	// DefaultMinCapacity replaces a non-positive minimum capacity passed to New.
	DefaultMinCapacity = 10
	// DefaultGrowthFactor multiplies the tail capacity on every growth event.
	DefaultGrowthFactor = 2
	// DefaultMaxFactor bounds segment capacity to MaxFactor*minCapacity. A growth step
	// that would exceed it falls back to minCapacity.
	DefaultMaxFactor = 10
)

// Observer is notified whenever the queue allocates or releases a segment.
// It must not call back into the queue.
type Observer interface {
	// SegmentAllocated is called after a segment of the given capacity is created.
	SegmentAllocated(capacity int)
	// SegmentReleased is called when a segment leaves the ring, on reclamation or Clear.
	SegmentReleased(capacity int)
}

type options struct {
	growthFactor int
	maxFactor    int
	observer     Observer
}

func defaultOptions() options {
	return options{
		growthFactor: DefaultGrowthFactor,
		maxFactor:    DefaultMaxFactor,
	}
}

// Option configures a SegmentedQueue.
type Option func(*options)

// WithGrowthFactor sets the capacity multiplier applied on growth. Values below 2
// keep the default.
func WithGrowthFactor(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.growthFactor = n
		}
	}
}

// WithMaxFactor sets the growth ceiling as a multiple of the minimum capacity.
// Values below 1 keep the default.
func WithMaxFactor(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxFactor = n
		}
	}
}

// WithObserver registers o for segment allocation and release events.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}
