package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/i5heu/GoSegQueue/internal/telemetry"
	"github.com/i5heu/GoSegQueue/internal/testbench"
	"github.com/i5heu/GoSegQueue/pkg/config"
	"github.com/i5heu/GoSegQueue/pkg/segqueue"
)

// Implementation represents one queue configuration under test.
type Implementation struct {
	name        string
	description string
	minCapacity int
	features    []string
	newQueue    func(opts ...segqueue.Option) *segqueue.SegmentedQueue
}

// getImplementations builds one segmented queue configuration per minimum capacity.
func getImplementations(minCapacities []int) []Implementation {
	impls := make([]Implementation, 0, len(minCapacities))
	for _, c := range minCapacities {
		impls = append(impls, Implementation{
			name:        fmt.Sprintf("SegmentedQueue/min=%d", c),
			description: fmt.Sprintf("Ring of segments growing x%d from %d up to %d slots.", segqueue.DefaultGrowthFactor, c, c*segqueue.DefaultMaxFactor),
			minCapacity: c,
			features:    []string{"FIFO", "Unbounded", "Eager-Reclamation"},
			newQueue: func(opts ...segqueue.Option) *segqueue.SegmentedQueue {
				return segqueue.New(c, opts...)
			},
		})
	}
	return impls
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}

// runOne performs a single timed run with fresh telemetry.
func runOne(impl Implementation, batch int, d time.Duration) (BenchmarkResult, error) {
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewQueueMetrics(reg, impl.name)
	if err != nil {
		return BenchmarkResult{}, err
	}
	q := impl.newQueue(segqueue.WithObserver(metrics))

	runtime.GC()
	res, err := testbench.RunTimedTest(q, batch, d)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("%s batch=%d: %w", impl.name, batch, err)
	}
	snap, err := telemetry.ReadSnapshot(reg, impl.name)
	if err != nil {
		return BenchmarkResult{}, err
	}

	return BenchmarkResult{
		Implementation:      impl.name,
		MinCapacity:         impl.minCapacity,
		BatchSize:           batch,
		NumMessages:         res.Enqueued,
		NumMessagesConsumed: res.Dequeued,
		TestDuration:        d.String(),
		ActualElapsed:       res.Elapsed.String(),
		Throughput:          float64(res.Dequeued) / res.Elapsed.Seconds(),
		MaxSegments:         res.MaxSegments,
		Segments:            snap,
		Timestamp:           time.Now().Unix(),
		GoVersion:           runtime.Version(),
	}, nil
}

// runSession executes the whole plan once and returns the session report.
func runSession(cfg config.Config, impls []Implementation, progress io.Writer, log zerolog.Logger) (FullReport, error) {
	total := len(impls) * len(cfg.BatchSizes) * cfg.Iterations
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("benchmarking"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)

	report := FullReport{SystemInfo: gatherSystemInfo()}
	for _, impl := range impls {
		log.Info().Str("implementation", impl.name).Msg(impl.description)
		for _, batch := range cfg.BatchSizes {
			for iteration := 1; iteration <= cfg.Iterations; iteration++ {
				result, err := runOne(impl, batch, cfg.Duration)
				if err != nil {
					return report, err
				}
				log.Debug().
					Str("implementation", impl.name).
					Int("batch", batch).
					Int("iteration", iteration).
					Float64("throughput", result.Throughput).
					Int("max_segments", result.MaxSegments).
					Uint64("segments_allocated", result.Segments.Allocated).
					Msg("run finished")
				report.Benchmarks = append(report.Benchmarks, result)
				_ = bar.Add(1)
			}
		}
	}
	_ = bar.Finish()

	if cfg.Trials > 0 && cfg.TrialSize > 0 {
		for _, impl := range impls {
			newQueue := func() *segqueue.SegmentedQueue { return impl.newQueue() }
			results := testbench.RunTrials(newQueue, cfg.Trials, cfg.TrialSize)
			for _, r := range results {
				log.Info().
					Str("implementation", impl.name).
					Int("trial", r.Trial).
					Int("elements", r.Elements).
					Int("segments", r.Segments).
					Dur("elapsed", r.Elapsed).
					Msg("enqueue trial")
			}
			report.Trials = append(report.Trials, TrialReport{Implementation: impl.name, Results: results})
		}
	}

	report.SessionTime = time.Now().Format(time.RFC3339)
	return report, nil
}

func main() {
	configFile := flag.String("config", "", "Path to a YAML benchmark plan (defaults are used when empty)")
	testIterations := flag.Int("iter", 0, "Override the number of iterations per batch size")
	testDuration := flag.Duration("duration", 0, "Override the duration of each timed run")
	trials := flag.Int("trials", -1, "Override the number of enqueue trials (0 disables them)")
	jsonExport := flag.Bool("json", false, "Append results as JSON to -jsonfile")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from -jsonfile and exit")
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to the JSON results file")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	verbose := flag.Bool("v", false, "Log every run")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if *markdownTable {
		if err := writeMarkdownTable(os.Stdout, *jsonFile); err != nil {
			log.Fatal().Err(err).Msg("cannot render markdown table")
		}
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatal().Err(err).Msg("cannot load benchmark plan")
		}
	}
	if *testIterations > 0 {
		cfg.Iterations = *testIterations
	}
	if *testDuration > 0 {
		cfg.Duration = *testDuration
	}
	if *trials >= 0 {
		cfg.Trials = *trials
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid benchmark plan")
	}

	var progress io.Writer = io.Discard
	if *progressFlag {
		progress = os.Stderr
	}

	impls := getImplementations(cfg.MinCapacities)
	report, err := runSession(cfg, impls, progress, log)
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}

	for _, r := range report.Benchmarks {
		fmt.Printf("%s batch=%d => enqueued=%d, dequeued=%d, throughput=%.0f msg/s, max segments=%d, took=%s\n",
			r.Implementation, r.BatchSize, r.NumMessages, r.NumMessagesConsumed, r.Throughput, r.MaxSegments, r.ActualElapsed)
	}

	if *jsonExport {
		if err := appendSessions(*jsonFile, []FullReport{report}); err != nil {
			log.Fatal().Err(err).Msg("cannot export results")
		}
		log.Info().Str("file", *jsonFile).Msg("wrote results")
	}
}
