package testbench

import (
	"context"
	"fmt"
	"time"

	"github.com/i5heu/GoSegQueue/internal/queue"
)

// Config describes one benchmark plan: which queues to build and how hard to drive them.
type Config struct {
	// Iterations is the number of timed runs per (min capacity, batch size) pair.
	Iterations int `yaml:"iterations" json:"iterations"`
	// Duration is the length of each timed run.
	Duration time.Duration `yaml:"duration" json:"duration"`
	// MinCapacities lists the queue minimum capacities to compare.
	MinCapacities []int `yaml:"min_capacities" json:"min_capacities"`
	// BatchSizes lists how many values are enqueued before draining.
	BatchSizes []int `yaml:"batch_sizes" json:"batch_sizes"`
	// Trials and TrialSize drive RunTrials: trial k enqueues TrialSize*k values.
	Trials    int `yaml:"trials" json:"trials"`
	TrialSize int `yaml:"trial_size" json:"trial_size"`
}

// Result of one RunTimedTest call.
type Result struct {
	Enqueued    int64
	Dequeued    int64
	Batches     int64
	MaxSegments int
	Elapsed     time.Duration
}

// RunTimedTest fills q with batch values and drains it again, over and over, until
// testDuration has passed. Every drained value is checked against the order it was
// written in. The queue is driven from the calling goroutine only.
func RunTimedTest[Q queue.Validation](q Q, batch int, testDuration time.Duration) (Result, error) {
	if batch < 1 {
		return Result{}, fmt.Errorf("batch size must be positive, got %d", batch)
	}

	start := time.Now()
	// Create a context that will cancel after testDuration.
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var res Result
	next := 0
	for ctx.Err() == nil {
		first := next
		for i := 0; i < batch; i++ {
			q.Enqueue(next)
			next++
		}
		res.Enqueued += int64(batch)
		if n := q.SegmentCount(); n > res.MaxSegments {
			res.MaxSegments = n
		}

		for want := first; want < next; want++ {
			got, err := q.Dequeue()
			if err != nil {
				return res, fmt.Errorf("dequeue %d of batch %d: %w", want-first, res.Batches, err)
			}
			if got != want {
				return res, fmt.Errorf("FIFO violation in batch %d: expected %d, got %d", res.Batches, want, got)
			}
			res.Dequeued++
		}
		res.Batches++
	}
	res.Elapsed = time.Since(start)

	if used := q.UsedSlots(); used != 0 {
		return res, fmt.Errorf("queue not empty after run: UsedSlots=%d", used)
	}
	return res, nil
}

// TrialResult is the timing of one enqueue trial.
type TrialResult struct {
	Trial    int           `json:"trial"`
	Elements int           `json:"elements"`
	Segments int           `json:"segments"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// RunTrials times pure enqueue work. Trial k (1-based) enqueues n*k values into a
// fresh queue from newQueue.
func RunTrials[Q queue.Validation](newQueue func() Q, trials, n int) []TrialResult {
	out := make([]TrialResult, 0, trials)
	for trial := 1; trial <= trials; trial++ {
		q := newQueue()
		elements := n * trial

		start := time.Now()
		for i := 0; i < elements; i++ {
			q.Enqueue(i)
		}
		elapsed := time.Since(start)

		out = append(out, TrialResult{
			Trial:    trial,
			Elements: elements,
			Segments: q.SegmentCount(),
			Elapsed:  elapsed,
		})
	}
	return out
}
