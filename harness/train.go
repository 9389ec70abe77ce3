// Package harness controls benchmark iteration and accumulates the
// timing data the driver reports back. It knows nothing about models,
// datasets, or optimizers: a TrainBenchmark decides which batch size
// each run uses and collects per-epoch durations, a TestBenchmark
// counts inference iterations, and both serialize their records as CSV.
package harness

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrNoActiveRun is returned by AddEpoch when no run is in progress,
// either because iteration has not started or because the benchmark
// is exhausted.
var ErrNoActiveRun = errors.New("harness: no active run")

type trainState int

const (
	stateNotStarted trainState = iota
	stateInRun
	stateDone
)

// Run records one training session at a fixed batch size.
type Run struct {
	Index          int
	BatchSize      int
	EpochDurations []float64 // seconds, in epoch order
}

// TrainBenchmark enumerates training runs on a deterministic batch-size
// schedule and collects the per-epoch wall-clock durations the caller
// reports via AddEpoch. It is a single-pass state machine: Next moves
// it from not-started through each run to done, and AddEpoch is valid
// only while a run is active.
type TrainBenchmark struct {
	initialBatchSize int
	varyBatchSize    bool
	numRuns          int

	state trainState
	next  int
	runs  []Run
}

// NewTrainBenchmark creates a benchmark producing numRuns runs. The
// batch size is initialBatchSize for every run, or doubles each run
// when varyBatchSize is set.
func NewTrainBenchmark(
	initialBatchSize int, varyBatchSize bool, numRuns int,
) (*TrainBenchmark, error) {
	if initialBatchSize <= 0 {
		return nil, fmt.Errorf(
			"harness: initial batch size must be positive, got %d",
			initialBatchSize,
		)
	}

	if numRuns <= 0 {
		return nil, fmt.Errorf(
			"harness: number of runs must be positive, got %d", numRuns,
		)
	}

	return &TrainBenchmark{
		initialBatchSize: initialBatchSize,
		varyBatchSize:    varyBatchSize,
		numRuns:          numRuns,
	}, nil
}

// Next starts the next run and returns its index and batch size.
// Once all runs have been produced it returns ok == false and keeps
// doing so on every later call; the benchmark never restarts.
func (b *TrainBenchmark) Next() (runIndex, batchSize int, ok bool) {
	if b.state == stateDone || b.next == b.numRuns {
		b.state = stateDone

		return 0, 0, false
	}

	runIndex = b.next
	batchSize = b.initialBatchSize

	if b.varyBatchSize {
		batchSize = b.initialBatchSize << runIndex
	}

	b.runs = append(b.runs, Run{Index: runIndex, BatchSize: batchSize})
	b.next++
	b.state = stateInRun

	return runIndex, batchSize, true
}

// AddEpoch records the wall-clock duration of one completed epoch
// against the run most recently started by Next.
func (b *TrainBenchmark) AddEpoch(seconds float64) error {
	if b.state != stateInRun {
		return ErrNoActiveRun
	}

	if seconds < 0 {
		return fmt.Errorf(
			"harness: negative epoch duration %v", seconds,
		)
	}

	cur := &b.runs[len(b.runs)-1]
	cur.EpochDurations = append(cur.EpochDurations, seconds)

	return nil
}

// Runs returns a copy of the runs recorded so far.
func (b *TrainBenchmark) Runs() []Run {
	out := make([]Run, len(b.runs))

	for i, r := range b.runs {
		out[i] = Run{
			Index:          r.Index,
			BatchSize:      r.BatchSize,
			EpochDurations: append([]float64(nil), r.EpochDurations...),
		}
	}

	return out
}

// WriteCSV writes one row per recorded epoch, in run then epoch order,
// to path, overwriting any existing file. A benchmark that has recorded
// nothing yet writes just the header; an unfinished run exports the
// epochs it has so far.
func (b *TrainBenchmark) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	header := []string{"run", "batch_size", "epoch", "duration_seconds"}
	if err := w.Write(header); err != nil {
		f.Close()

		return fmt.Errorf("write header: %w", err)
	}

	for _, run := range b.runs {
		for epoch, d := range run.EpochDurations {
			row := []string{
				strconv.Itoa(run.Index),
				strconv.Itoa(run.BatchSize),
				strconv.Itoa(epoch),
				strconv.FormatFloat(d, 'f', -1, 64),
			}

			if err := w.Write(row); err != nil {
				f.Close()

				return fmt.Errorf(
					"write run %d epoch %d: %w", run.Index, epoch, err,
				)
			}
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()

		return fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}
