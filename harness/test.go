package harness

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// TestBenchmark enumerates a fixed number of inference-timing
// iterations. Unlike TrainBenchmark it records no durations: the
// driver measures and reports externally, and the CSV export holds
// only the iteration indices.
type TestBenchmark struct {
	numIterations int
	next          int
}

// NewTestBenchmark creates a benchmark yielding numIterations indices.
func NewTestBenchmark(numIterations int) (*TestBenchmark, error) {
	if numIterations <= 0 {
		return nil, fmt.Errorf(
			"harness: number of iterations must be positive, got %d",
			numIterations,
		)
	}

	return &TestBenchmark{numIterations: numIterations}, nil
}

// Next returns the next iteration index. Once exhausted it returns
// ok == false on every later call.
func (b *TestBenchmark) Next() (i int, ok bool) {
	if b.next == b.numIterations {
		return 0, false
	}

	i = b.next
	b.next++

	return i, true
}

// WriteCSV writes one row per iteration index to path, overwriting
// any existing file.
func (b *TestBenchmark) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{"iteration"}); err != nil {
		f.Close()

		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < b.numIterations; i++ {
		if err := w.Write([]string{strconv.Itoa(i)}); err != nil {
			f.Close()

			return fmt.Errorf("write iteration %d: %w", i, err)
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
