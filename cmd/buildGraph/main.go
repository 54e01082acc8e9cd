package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// benchmarkResult holds the fields of one bench run that the graphs need.
type benchmarkResult struct {
	Implementation      string `json:"implementation"`
	BatchSize           int    `json:"batch_size"`
	NumMessagesConsumed int64  `json:"num_messages_consumed"`
	ActualElapsed       string `json:"actual_elapsed"`
}

type trialResult struct {
	Elements int           `json:"elements"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

type trialReport struct {
	Implementation string        `json:"implementation"`
	Results        []trialResult `json:"results"`
}

type fullReport struct {
	SessionTime string            `json:"session_time"`
	Benchmarks  []benchmarkResult `json:"benchmarks"`
	Trials      []trialReport     `json:"trials"`
}

// batchStats is the ns/msg summary of one implementation at one batch size.
type batchStats struct {
	x      float64 // category index plus per-implementation offset
	batch  float64
	min    float64 // mean of the fastest tailShare
	median float64
	max    float64 // mean of the slowest tailShare
}

// statsPoints implements XYer and YErrorer for batchStats, so we can plot lines + error bars.
type statsPoints []batchStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].min, s[i].max - s[i].median
}

// categoryTicks implements a categorical X-axis: 0,1,2,... => labels for batch sizes.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

var shapes = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.SquareGlyph{},
	draw.TriangleGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
}

// newDarkPlot returns a plot with the dark theme used by every graph.
func newDarkPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white
	p.Add(plotter.NewGrid())
	return p
}

// nsTicks spreads roughly 20 labelled ticks evenly over log10(min)..log10(max).
func nsTicks(min, max float64) []plot.Tick {
	const nTicks = 20.0
	if min <= 0 {
		min = 1e-9
	}
	if max <= min {
		return []plot.Tick{{Value: min, Label: formatNs(min)}}
	}
	start := math.Log10(min)
	step := (math.Log10(max) - start) / nTicks

	var ticks []plot.Tick
	for i := 0.0; i <= nTicks; i++ {
		y := math.Pow(10, start+i*step)
		ticks = append(ticks, plot.Tick{Value: y, Label: formatNs(y)})
	}
	return ticks
}

// collectNsPerMsg groups ns/msg values by implementation and batch size.
func collectNsPerMsg(sessions []fullReport) map[string]map[float64][]float64 {
	out := make(map[string]map[float64][]float64)
	for _, session := range sessions {
		for _, b := range session.Benchmarks {
			dur, err := time.ParseDuration(b.ActualElapsed)
			if err != nil || b.NumMessagesConsumed == 0 {
				continue
			}
			if _, ok := out[b.Implementation]; !ok {
				out[b.Implementation] = make(map[float64][]float64)
			}
			x := float64(b.BatchSize)
			out[b.Implementation][x] = append(out[b.Implementation][x],
				float64(dur.Nanoseconds())/float64(b.NumMessagesConsumed))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildThroughputPlot renders ns/msg per batch size, one series per implementation.
func buildThroughputPlot(implMap map[string]map[float64][]float64) (*plot.Plot, error) {
	p := newDarkPlot("Segmented queue (5%-avg-min / Median / 5%-avg-max) vs. batch size",
		"Batch size (values enqueued before draining)", "Time per Msg")
	p.Y.Tick.Marker = plot.TickerFunc(nsTicks)

	batchSet := make(map[float64]struct{})
	for _, data := range implMap {
		for b := range data {
			batchSet[b] = struct{}{}
		}
	}
	var batches []float64
	for b := range batchSet {
		batches = append(batches, b)
	}
	sort.Float64s(batches)

	category := make(map[float64]float64)
	var ticks categoryTicks
	for i, b := range batches {
		category[b] = float64(i)
		ticks.positions = append(ticks.positions, float64(i))
		ticks.labels = append(ticks.labels, strconv.FormatFloat(b, 'f', -1, 64))
	}
	p.X.Tick.Marker = ticks

	implNames := sortedKeys(implMap)
	colors := plotutil.SoftColors

	// Slight offset so each implementation is visually separated.
	const offsetRange = 0.4
	offsetStep := offsetRange / float64(len(implNames))
	startOffset := -offsetRange/2 + offsetStep/2

	for i, impl := range implNames {
		stats := buildStats(implMap[impl])
		if len(stats) == 0 {
			continue
		}
		for j := range stats {
			stats[j].x = category[stats[j].batch] + startOffset + float64(i)*offsetStep
		}
		sort.Slice(stats, func(a, b int) bool { return stats[a].x < stats[b].x })
		sp := statsPoints(stats)

		line, err := plotter.NewLine(sp)
		if err != nil {
			return nil, fmt.Errorf("line for %s: %w", impl, err)
		}
		line.Color = colors[i%len(colors)]

		points, err := plotter.NewScatter(sp)
		if err != nil {
			return nil, fmt.Errorf("scatter for %s: %w", impl, err)
		}
		points.GlyphStyle.Radius = vg.Points(5)
		points.Color = colors[i%len(colors)]
		points.Shape = shapes[i%len(shapes)]

		yErrBars, err := plotter.NewYErrorBars(sp)
		if err != nil {
			return nil, fmt.Errorf("error bars for %s: %w", impl, err)
		}
		yErrBars.Color = colors[i%len(colors)]

		p.Add(line, points, yErrBars)
		p.Legend.Add(impl, line, points)
	}
	return p, nil
}

// buildTrialPlot renders enqueue trial time per element count for the last session
// that recorded trials. It returns nil when no session has trials.
func buildTrialPlot(sessions []fullReport) (*plot.Plot, error) {
	var trials []trialReport
	for i := len(sessions) - 1; i >= 0 && trials == nil; i-- {
		trials = sessions[i].Trials
	}
	if len(trials) == 0 {
		return nil, nil
	}

	p := newDarkPlot("Enqueue trials", "Elements enqueued", "Elapsed")
	p.Y.Tick.Marker = plot.TickerFunc(nsTicks)
	colors := plotutil.SoftColors
	for i, tr := range trials {
		pts := make(plotter.XYs, 0, len(tr.Results))
		for _, r := range tr.Results {
			pts = append(pts, plotter.XY{X: float64(r.Elements), Y: float64(r.Elapsed.Nanoseconds())})
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("trial line for %s: %w", tr.Implementation, err)
		}
		line.Color = colors[i%len(colors)]
		points.Color = colors[i%len(colors)]
		points.Shape = shapes[i%len(shapes)]
		p.Add(line, points)
		p.Legend.Add(tr.Implementation, line, points)
	}
	return p, nil
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing test sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	data, err := os.ReadFile(*jsonFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *jsonFile).Msg("cannot read results")
	}
	var sessions []fullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Fatal().Err(err).Str("file", *jsonFile).Msg("cannot unmarshal results")
	}

	p, err := buildThroughputPlot(collectNsPerMsg(sessions))
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build throughput graph")
	}
	filename := *outputPrefix + "_batch.png"
	if err := p.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("cannot save graph")
	}
	log.Info().Str("file", filename).Msg("throughput graph saved")

	tp, err := buildTrialPlot(sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build trial graph")
	}
	if tp == nil {
		return
	}
	filename = *outputPrefix + "_trials.png"
	if err := tp.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("cannot save graph")
	}
	log.Info().Str("file", filename).Msg("trial graph saved")
}

// tailShare is the fraction of fastest and slowest runs averaged into the error bars.
const tailShare = 0.05

// buildStats reduces the ns/msg samples of every batch size to one plotted point.
func buildStats(byBatch map[float64][]float64) []batchStats {
	out := make([]batchStats, 0, len(byBatch))
	for batch, samples := range byBatch {
		if len(samples) == 0 {
			continue
		}
		out = append(out, nsPerMsgStats(batch, samples))
	}
	return out
}

// nsPerMsgStats returns the median of samples bracketed by the mean of the fastest
// and of the slowest tailShare of them. With too few samples for a tail, both bars
// collapse onto the median. samples is not reordered.
func nsPerMsgStats(batch float64, samples []float64) batchStats {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	n := len(sorted)

	st := batchStats{batch: batch, median: sorted[n/2]}
	if n%2 == 0 {
		st.median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	st.min, st.max = st.median, st.median

	tail := int(float64(n) * tailShare)
	if tail == 0 {
		return st
	}
	var fast, slow float64
	for i := 0; i < tail; i++ {
		fast += sorted[i]
		slow += sorted[n-1-i]
	}
	st.min = fast / float64(tail)
	st.max = slow / float64(tail)
	return st
}

// formatNs nicely formats a nanoseconds value in ns, µs, ms, or s.
func formatNs(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.1fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.1fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}
