package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "segqueue"

// QueueMetrics records segment lifecycle events of one queue as prometheus metrics.
// It implements segqueue.Observer.
type QueueMetrics struct {
	allocated     prometheus.Counter
	released      prometheus.Counter
	capacityTotal prometheus.Counter
	live          prometheus.Gauge
	liveCapacity  prometheus.Gauge
}

// NewQueueMetrics creates the metrics for the queue called name and registers them
// on reg.
func NewQueueMetrics(reg prometheus.Registerer, name string) (*QueueMetrics, error) {
	labels := prometheus.Labels{"queue": name}
	m := &QueueMetrics{
		allocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "segments_allocated_total",
			Help:        "Total number of segments allocated",
			ConstLabels: labels,
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "segments_released_total",
			Help:        "Total number of segments released",
			ConstLabels: labels,
		}),
		capacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "slots_allocated_total",
			Help:        "Sum of the capacities of all allocated segments",
			ConstLabels: labels,
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "segments",
			Help:        "Number of segments currently linked into the ring",
			ConstLabels: labels,
		}),
		liveCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "slots",
			Help:        "Total capacity of the segments currently linked into the ring",
			ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.allocated, m.released, m.capacityTotal, m.live, m.liveCapacity} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register queue metrics for %q: %w", name, err)
		}
	}
	return m, nil
}

// SegmentAllocated counts a new segment of the given capacity.
func (m *QueueMetrics) SegmentAllocated(capacity int) {
	m.allocated.Inc()
	m.capacityTotal.Add(float64(capacity))
	m.live.Inc()
	m.liveCapacity.Add(float64(capacity))
}

// SegmentReleased counts a segment leaving the ring.
func (m *QueueMetrics) SegmentReleased(capacity int) {
	m.released.Inc()
	m.live.Dec()
	m.liveCapacity.Sub(float64(capacity))
}

// Snapshot is a point-in-time copy of the counters of one queue.
type Snapshot struct {
	Allocated      uint64 `json:"segments_allocated"`
	Released       uint64 `json:"segments_released"`
	SlotsAllocated uint64 `json:"slots_allocated"`
	Live           int64  `json:"segments_live"`
}

// ReadSnapshot gathers the metrics of the queue called name from g.
func ReadSnapshot(g prometheus.Gatherer, name string) (Snapshot, error) {
	families, err := g.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gather queue metrics: %w", err)
	}
	var s Snapshot
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if !hasLabel(metric, "queue", name) {
				continue
			}
			switch mf.GetName() {
			case namespace + "_segments_allocated_total":
				s.Allocated = uint64(metric.GetCounter().GetValue())
			case namespace + "_segments_released_total":
				s.Released = uint64(metric.GetCounter().GetValue())
			case namespace + "_slots_allocated_total":
				s.SlotsAllocated = uint64(metric.GetCounter().GetValue())
			case namespace + "_segments":
				s.Live = int64(metric.GetGauge().GetValue())
			}
		}
	}
	return s, nil
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
