package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/i5heu/GoSegQueue/internal/telemetry"
	"github.com/i5heu/GoSegQueue/internal/testbench"
)

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation      string             `json:"implementation"`
	MinCapacity         int                `json:"min_capacity"`
	BatchSize           int                `json:"batch_size"`
	NumMessages         int64              `json:"num_messages"`          // enqueued count
	NumMessagesConsumed int64              `json:"num_messages_consumed"` // dequeued count
	TestDuration        string             `json:"test_duration"`         // e.g. "2s"
	ActualElapsed       string             `json:"actual_elapsed"`        // measured time
	Throughput          float64            `json:"throughput_msgs_sec"`   // based on consumed count
	MaxSegments         int                `json:"max_segments"`
	Segments            telemetry.Snapshot `json:"segments"`
	Timestamp           int64              `json:"timestamp"`
	GoVersion           string             `json:"go_version"`
}

// TrialReport holds the enqueue trials of one implementation.
type TrialReport struct {
	Implementation string                  `json:"implementation"`
	Results        []testbench.TrialResult `json:"results"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH      string  `json:"go_arch"`
	TotalMemory uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
	Trials      []TrialReport     `json:"trials,omitempty"`
}

// loadSessions reads all sessions stored in filename. A missing file yields no sessions.
func loadSessions(filename string) ([]FullReport, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", filename, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal %q: %w", filename, err)
	}
	return sessions, nil
}

// appendSessions adds sessions to the ones already stored in filename.
func appendSessions(filename string, sessions []FullReport) error {
	previous, err := loadSessions(filename)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(append(previous, sessions...), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write %q: %w", filename, err)
	}
	return nil
}

// writeMarkdownTable renders the last session in jsonFile as a Markdown table,
// averaging repeated iterations of the same implementation and batch size.
func writeMarkdownTable(w io.Writer, jsonFile string) error {
	sessions, err := loadSessions(jsonFile)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %q", jsonFile)
	}
	lastSession := sessions[len(sessions)-1]

	type key struct {
		implementation string
		batch          int
	}
	type tableRow struct {
		key
		runs        int
		throughput  float64
		maxSegments int
		allocated   uint64
	}
	rowsByKey := make(map[key]*tableRow)
	var rows []*tableRow
	for _, bench := range lastSession.Benchmarks {
		k := key{bench.Implementation, bench.BatchSize}
		r, ok := rowsByKey[k]
		if !ok {
			r = &tableRow{key: k}
			rowsByKey[k] = r
			rows = append(rows, r)
		}
		r.runs++
		r.throughput += bench.Throughput
		if bench.MaxSegments > r.maxSegments {
			r.maxSegments = bench.MaxSegments
		}
		r.allocated += bench.Segments.Allocated
	}
	// Sort rows by batch size, then throughput descending.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].batch != rows[j].batch {
			return rows[i].batch < rows[j].batch
		}
		return rows[i].throughput/float64(rows[i].runs) > rows[j].throughput/float64(rows[j].runs)
	})

	var b strings.Builder
	b.WriteString("## Last Session Benchmark Summary\n\n")
	b.WriteString("| Implementation           | Batch      | Max Segments | Segments Allocated | Throughput (msgs/sec) |\n")
	b.WriteString("|--------------------------|------------|--------------|--------------------|-----------------------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %-24s | %10d | %12d | %18d | %21.0f |\n",
			r.implementation, r.batch, r.maxSegments, r.allocated/uint64(r.runs), r.throughput/float64(r.runs))
	}
	_, err = io.WriteString(w, b.String())
	return err
}
