package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/i5heu/GoSegQueue/pkg/config"
	"github.com/i5heu/GoSegQueue/pkg/segqueue"
)

// getEnvInt reads an integer from an environment variable with a default value.
func getEnvInt(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

// Test size configuration via environment variables:
//
//	SEGQ_TEST_SIZE - number of values pushed through each queue (default: 10000)
func getTestSize() int {
	return getEnvInt("SEGQ_TEST_SIZE", 10000)
}

var testMinCapacities = []int{1, 3, 10, 1024}

// withAllQueues is a test helper that loops over all implementations
// and calls your test function for each one.
func withAllQueues(t *testing.T, testedFeatures []string, fn func(t *testing.T, impl Implementation)) {
	t.Helper()
	for _, impl := range getImplementations(testMinCapacities) {
		t.Run(impl.name, func(t *testing.T) {
			for _, feature := range testedFeatures {
				found := false
				for _, implFeature := range impl.features {
					if feature == implFeature {
						found = true
						break
					}
				}
				if !found {
					t.Skipf("Skipping: missing feature %q", feature)
					return
				}
			}
			fn(t, impl)
		})
	}
}

func TestBasicFIFO(t *testing.T) {
	withAllQueues(t, []string{"FIFO"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue()
		n := getTestSize()

		for i := 0; i < n; i++ {
			q.Enqueue(i)
		}
		for i := 0; i < n; i++ {
			got, err := q.Dequeue()
			if err != nil {
				t.Fatalf("Dequeue %d failed: %v", i, err)
			}
			if got != i {
				t.Fatalf("FIFO violation at index %d: got %d", i, got)
			}
		}
		if q.UsedSlots() != 0 {
			t.Fatalf("Queue not empty after test: UsedSlots=%d", q.UsedSlots())
		}
	})
}

func TestEmptyQueue(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation) {
		q := impl.newQueue()

		if _, err := q.Dequeue(); !errors.Is(err, segqueue.ErrUnderflow) {
			t.Fatalf("Expected ErrUnderflow on empty queue, got %v", err)
		}

		q.Enqueue(42)
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Expected to dequeue a value, got %v", err)
		}
		if val != 42 {
			t.Fatalf("Expected to dequeue 42, got %d", val)
		}
		if _, err := q.Dequeue(); !errors.Is(err, segqueue.ErrUnderflow) {
			t.Fatalf("Expected ErrUnderflow after draining, got %v", err)
		}
	})
}

func TestGrowthIsUnbounded(t *testing.T) {
	withAllQueues(t, []string{"Unbounded"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue()
		n := impl.minCapacity*segqueue.DefaultMaxFactor + 1

		for i := 0; i < n; i++ {
			q.Enqueue(i)
		}
		if q.SegmentCount() < 2 {
			t.Fatalf("Expected at least one growth event, got %d segments", q.SegmentCount())
		}
		for i := 0; i < n; i++ {
			if got, err := q.Dequeue(); err != nil || got != i {
				t.Fatalf("Expected %d, got %d (err=%v)", i, got, err)
			}
		}
	})
}

func TestEagerReclamation(t *testing.T) {
	withAllQueues(t, []string{"Eager-Reclamation"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue()
		for i := 0; i < impl.minCapacity+1; i++ {
			q.Enqueue(i)
		}
		if q.SegmentCount() != 2 {
			t.Fatalf("Expected 2 segments, got %d", q.SegmentCount())
		}
		for i := 0; i < impl.minCapacity; i++ {
			if _, err := q.Dequeue(); err != nil {
				t.Fatalf("Dequeue failed: %v", err)
			}
		}
		if q.SegmentCount() != 1 {
			t.Fatalf("Expected the drained head to be released, got %d segments", q.SegmentCount())
		}
	})
}

func TestUsedFreeSlots(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation) {
		q := impl.newQueue()

		if q.UsedSlots() != 0 {
			t.Fatalf("Expected UsedSlots=0, got %d", q.UsedSlots())
		}
		if q.FreeSlots() != uint64(impl.minCapacity) {
			t.Fatalf("Expected FreeSlots=%d, got %d", impl.minCapacity, q.FreeSlots())
		}

		numEnqueues := 10
		for i := 0; i < numEnqueues; i++ {
			q.Enqueue(i)
		}
		if q.UsedSlots() != uint64(numEnqueues) {
			t.Fatalf("Expected UsedSlots=%d, got %d", numEnqueues, q.UsedSlots())
		}

		toDequeue := numEnqueues / 2
		for i := 0; i < toDequeue; i++ {
			if _, err := q.Dequeue(); err != nil {
				t.Fatalf("Expected an item after enqueuing %d items: %v", numEnqueues, err)
			}
		}
		if q.UsedSlots() != uint64(numEnqueues-toDequeue) {
			t.Fatalf("Expected UsedSlots=%d after dequeuing %d items, got %d",
				numEnqueues-toDequeue, toDequeue, q.UsedSlots())
		}
	})
}

func TestRunOneReportsSegments(t *testing.T) {
	impl := getImplementations([]int{4})[0]
	res, err := runOne(impl, 100, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("runOne failed: %v", err)
	}
	if res.NumMessages != res.NumMessagesConsumed {
		t.Fatalf("Expected enqueued == dequeued, got %d != %d", res.NumMessages, res.NumMessagesConsumed)
	}
	if res.MaxSegments < 2 {
		t.Fatalf("Expected growth with batch 100 and min 4, max segments=%d", res.MaxSegments)
	}
	if res.Segments.Allocated < 2 || res.Segments.Live != 1 {
		t.Fatalf("Unexpected segment telemetry: %+v", res.Segments)
	}
	if res.Segments.Allocated-res.Segments.Released != 1 {
		t.Fatalf("Allocated and released segments do not balance: %+v", res.Segments)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Iterations = 2
	cfg.Duration = 10 * time.Millisecond
	cfg.MinCapacities = []int{2, 8}
	cfg.BatchSizes = []int{5, 50}
	cfg.Trials = 2
	cfg.TrialSize = 100

	report, err := runSession(cfg, getImplementations(cfg.MinCapacities), io.Discard, zerolog.Nop())
	if err != nil {
		t.Fatalf("runSession failed: %v", err)
	}
	if len(report.Benchmarks) != 2*2*2 {
		t.Fatalf("Expected 8 results, got %d", len(report.Benchmarks))
	}
	if len(report.Trials) != 2 || len(report.Trials[0].Results) != 2 {
		t.Fatalf("Unexpected trials: %+v", report.Trials)
	}

	file := filepath.Join(t.TempDir(), "results.json")
	if err := appendSessions(file, []FullReport{report}); err != nil {
		t.Fatalf("appendSessions failed: %v", err)
	}
	if err := appendSessions(file, []FullReport{report}); err != nil {
		t.Fatalf("appendSessions failed: %v", err)
	}
	sessions, err := loadSessions(file)
	if err != nil {
		t.Fatalf("loadSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}

	var buf bytes.Buffer
	if err := writeMarkdownTable(&buf, file); err != nil {
		t.Fatalf("writeMarkdownTable failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SegmentedQueue/min=2", "SegmentedQueue/min=8", "| Batch"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Markdown table misses %q:\n%s", want, out)
		}
	}
	// One row per implementation and batch size, plus two header lines.
	rows := strings.Count(out, "\n| ")
	if rows != 2*2+1 {
		t.Fatalf("Expected 5 table lines after the header row, got %d:\n%s", rows, out)
	}
}

func TestMarkdownTableWithoutSessions(t *testing.T) {
	file := filepath.Join(t.TempDir(), "missing.json")
	if err := writeMarkdownTable(io.Discard, file); err == nil {
		t.Fatal("Expected an error for a missing results file")
	}
}

func TestImplementationsKeepTheirOwnCapacity(t *testing.T) {
	for _, impl := range getImplementations(testMinCapacities) {
		q := impl.newQueue()
		if got := q.MinCapacity(); got != impl.minCapacity {
			t.Errorf("%s: queue built with min capacity %d, want %d", impl.name, got, impl.minCapacity)
		}
	}
}
