// Package report formats recorded benchmark timings into comparison
// tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/rsinha/mlpbench/harness"
)

// Summary aggregates the epoch timings of one training run.
type Summary struct {
	Run          int     `json:"run"`
	BatchSize    int     `json:"batch_size"`
	Epochs       int     `json:"epochs"`
	TotalSeconds float64 `json:"total_seconds"`
	MeanSeconds  float64 `json:"mean_epoch_seconds"`
	BestSeconds  float64 `json:"best_epoch_seconds"`
}

// Summarize reduces recorded runs to per-run summaries. Runs with no
// recorded epochs produce zero-valued summaries.
func Summarize(runs []harness.Run) []Summary {
	summaries := make([]Summary, 0, len(runs))

	for _, r := range runs {
		s := Summary{Run: r.Index, BatchSize: r.BatchSize}

		for _, d := range r.EpochDurations {
			s.TotalSeconds += d

			if s.Epochs == 0 || d < s.BestSeconds {
				s.BestSeconds = d
			}

			s.Epochs++
		}

		if s.Epochs > 0 {
			s.MeanSeconds = s.TotalSeconds / float64(s.Epochs)
		}

		summaries = append(summaries, s)
	}

	return summaries
}

// Generate writes a markdown comparison table for the given summaries.
func Generate(w io.Writer, summaries []Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(summaries)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Run | Batch Size | Epochs | Total "+
		"| Mean Epoch | Best Epoch | Speedup |")
	fmt.Fprintln(w, "|-----|------------|--------|-------"+
		"|------------|------------|---------|")

	for _, s := range summaries {
		speedup := 1.0
		if fastest > 0 && s.MeanSeconds > 0 {
			speedup = s.MeanSeconds / fastest
		}

		fmt.Fprintf(w, "| %d | %d | %d | %s | %s | %s | %.2fx |\n",
			s.Run,
			s.BatchSize,
			s.Epochs,
			formatSeconds(s.TotalSeconds),
			formatSeconds(s.MeanSeconds),
			formatSeconds(s.BestSeconds),
			speedup,
		)
	}

	return nil
}

// GenerateJSON writes summaries as JSON to w.
func GenerateJSON(w io.Writer, summaries []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summaries)
}

func findFastest(summaries []Summary) float64 {
	fastest := math.MaxFloat64

	for _, s := range summaries {
		if s.MeanSeconds > 0 && s.MeanSeconds < fastest {
			fastest = s.MeanSeconds
		}
	}

	if fastest == math.MaxFloat64 {
		return 0
	}

	return fastest
}

func formatSeconds(s float64) string {
	if s == 0 {
		return "-"
	}

	if s < 1 {
		return fmt.Sprintf("%.0fms", s*1000)
	}

	return fmt.Sprintf("%.2fs", s)
}
