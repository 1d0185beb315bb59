package report

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"altbot/internal/infra/storage"
	"altbot/internal/latency"

	"github.com/disintegration/imaging"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Artifact file names inside the report directory.
const (
	JSONFile  = "histogram_summary.json"
	TextFile  = "summary.txt"
	ChartFile = "latency.png"
	HistFile  = "hdr_histogram.hdr"
)

// Artifacts are the paths Write produced.
type Artifacts struct {
	JSON  string
	Text  string
	Chart string
	Hist  string
}

// Write creates dir and writes every artifact.
func Write(dir string, s Summary, snap latency.Snapshot) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifacts{}, fmt.Errorf("failed to create report directory: %w", err)
	}
	a := Artifacts{
		JSON:  filepath.Join(dir, JSONFile),
		Text:  filepath.Join(dir, TextFile),
		Chart: filepath.Join(dir, ChartFile),
		Hist:  filepath.Join(dir, HistFile),
	}
	if err := WriteJSON(a.JSON, s); err != nil {
		return a, err
	}
	if err := os.WriteFile(a.Text, []byte(s.Text()), 0644); err != nil {
		return a, fmt.Errorf("failed to write text summary: %w", err)
	}
	if err := WriteChart(a.Chart, snap, s.TargetP95Ms); err != nil {
		return a, err
	}
	if err := WriteHistogram(a.Hist, snap); err != nil {
		return a, err
	}
	return a, nil
}

// WriteHistogram writes the full histogram in compressed V2 HDR encoding.
func WriteHistogram(path string, snap latency.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode histogram: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write histogram: %w", err)
	}
	return nil
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, s Summary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write JSON summary: %w", err)
	}
	return nil
}

func us(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// Text renders the human-readable summary.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Run %s (%s) ===\n", s.RunID, s.Mode)
	fmt.Fprintf(&b, "Total time: %.2fs\n", s.DurationSecs)
	fmt.Fprintf(&b, "Throughput: %.0f ticks/sec\n", s.ThroughputTPS)
	fmt.Fprintf(&b, "Ticks: %d\n", s.Ticks)
	fmt.Fprintf(&b, "Triggers: %d\n\n", s.Triggers)

	b.WriteString("=== Latency (µs) ===\n")
	fmt.Fprintf(&b, "Count: %d (over range: %d)\n", s.Count, s.Overflow)
	fmt.Fprintf(&b, "Min: %s  Mean: %s  Max: %s\n", us(s.MinUs), us(s.MeanUs), us(s.MaxUs))
	fmt.Fprintf(&b, "p50: %s  p95: %s  p99: %s  p99.9: %s\n\n", us(s.P50Us), us(s.P95Us), us(s.P99Us), us(s.P999Us))

	b.WriteString("=== Execution ===\n")
	fmt.Fprintf(&b, "Emitted Intents: %d\n", s.EmittedIntents)
	fmt.Fprintf(&b, "Dropped Intents: %d\n", s.DroppedIntents)
	fmt.Fprintf(&b, "Acks Received: %d\n", s.AckCount)
	fmt.Fprintf(&b, "Fills Received: %d\n", s.FillCount)
	if s.OrderViolations > 0 {
		fmt.Fprintf(&b, "Order Violations: %d\n", s.OrderViolations)
	}
	b.WriteString("\n=== Suppression ===\n")
	fmt.Fprintf(&b, "Gate Blocks: %d (buy_disabled=%d budget=%d open_intents=%d)\n",
		s.GateBlockCount, s.BlockedBuyDisabled, s.BlockedBudget, s.BlockedOpenIntents)
	fmt.Fprintf(&b, "Cooldown Blocks: %d\n", s.CooldownBlockCount)
	fmt.Fprintf(&b, "Undefined Returns: %d\n", s.UndefinedReturns)
	fmt.Fprintf(&b, "Symbol Rejects: %d\n", s.SymbolRejects)
	fmt.Fprintf(&b, "Decode Errors: %d\n\n", s.DecodeErrors)

	p95ms := decimal.NewFromFloat(s.P95Us).Shift(-3).StringFixed(2)
	target := decimal.NewFromFloat(s.TargetP95Ms).StringFixed(2)
	if s.TargetMet {
		fmt.Fprintf(&b, "%s: p95 latency (%s ms) <= %s ms target\n", s.Verdict, p95ms, target)
	} else {
		fmt.Fprintf(&b, "%s: p95 latency (%s ms) > %s ms target\n", s.Verdict, p95ms, target)
	}
	return b.String()
}

// Record converts the summary to a run-history row.
func (s Summary) Record() (storage.RunRecord, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return storage.RunRecord{}, fmt.Errorf("failed to serialize summary: %w", err)
	}
	return storage.RunRecord{
		ID:            s.RunID,
		Mode:          s.Mode,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		Ticks:         s.Ticks,
		Triggers:      s.Triggers,
		Emitted:       s.EmittedIntents,
		Dropped:       s.DroppedIntents,
		Submitted:     s.Submitted,
		Acks:          s.AckCount,
		Fills:         s.FillCount,
		GateBlocks:    s.GateBlockCount,
		Cooldowns:     s.CooldownBlockCount,
		P50Micros:     s.P50Us,
		P95Micros:     s.P95Us,
		P99Micros:     s.P99Us,
		P999Micros:    s.P999Us,
		MaxMicros:     s.MaxUs,
		ThroughputTPS: s.ThroughputTPS,
		TargetP95Ms:   s.TargetP95Ms,
		TargetP95Met:  s.TargetMet,
		SummaryJSON:   string(b),
	}, nil
}

// Chart geometry.
const (
	ChartWidth  = 800
	ChartHeight = 300
	chartPad    = 10
)

var (
	chartBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	chartBar        = color.NRGBA{R: 52, G: 101, B: 164, A: 255}
	chartTarget     = color.NRGBA{R: 204, G: 0, B: 0, A: 255}
	chartP95        = color.NRGBA{R: 245, G: 121, B: 0, A: 255}
)

// WriteChart draws the non-empty histogram buckets as bars in bucket order,
// folding neighbours together when there are more buckets than pixels. The
// column holding p95 is highlighted and a red edge marks a missed target.
func WriteChart(path string, snap latency.Snapshot, targetMs float64) error {
	img := imaging.New(ChartWidth, ChartHeight, chartBackground)

	buckets := snap.Buckets()
	if len(buckets) > 0 {
		plotW := ChartWidth - 2*chartPad
		plotH := ChartHeight - 2*chartPad
		cols := min(len(buckets), plotW)
		barW := plotW / cols
		p95 := snap.P95()

		counts := make([]uint64, cols)
		p95Col := -1
		for i, b := range buckets {
			c := i * cols / len(buckets)
			counts[c] += b.Count
			if p95 >= b.Lo && p95 <= b.Hi {
				p95Col = c
			}
		}
		var peak uint64
		for _, c := range counts {
			peak = max(peak, c)
		}

		for c, n := range counts {
			if n == 0 {
				continue
			}
			x := chartPad + c*barW
			h := max(int(uint64(plotH)*n/peak), 1)
			fill := chartBar
			if c == p95Col {
				fill = chartP95
			}
			bar := imaging.New(max(barW-1, 1), h, fill)
			img = imaging.Paste(img, bar, image.Pt(x, ChartHeight-chartPad-h))
		}

		if targetMs > 0 && Millis(p95) > targetMs {
			edge := imaging.New(ChartWidth, chartPad/2, chartTarget)
			img = imaging.Paste(img, edge, image.Pt(0, 0))
		}
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save latency chart: %w", err)
	}
	return nil
}
