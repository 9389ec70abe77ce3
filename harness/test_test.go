package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTestBenchmarkYieldsAllIterations(t *testing.T) {
	b, err := NewTestBenchmark(5)
	if err != nil {
		t.Fatalf("NewTestBenchmark failed: %v", err)
	}

	for want := 0; want < 5; want++ {
		i, ok := b.Next()
		if !ok {
			t.Fatalf("Next returned ok=false at iteration %d", want)
		}
		if i != want {
			t.Errorf("iteration = %d, want %d", i, want)
		}
	}

	if _, ok := b.Next(); ok {
		t.Error("expected exhaustion after 5 iterations")
	}
	if _, ok := b.Next(); ok {
		t.Error("exhausted benchmark yielded again")
	}
}

func TestTestBenchmarkRejectsBadConfig(t *testing.T) {
	if _, err := NewTestBenchmark(0); err == nil {
		t.Error("expected error for zero iterations")
	}
	if _, err := NewTestBenchmark(-1); err == nil {
		t.Error("expected error for negative iterations")
	}
}

func TestTestWriteCSV(t *testing.T) {
	b, err := NewTestBenchmark(5)
	if err != nil {
		t.Fatalf("NewTestBenchmark failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.csv")
	if err := b.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6 (header + 5 iterations)", len(lines))
	}
	if lines[0] != "iteration" {
		t.Errorf("header = %q, want iteration", lines[0])
	}
	if lines[1] != "0" || lines[5] != "4" {
		t.Errorf("rows = %v, want indices 0..4", lines[1:])
	}
}

func TestResultNames(t *testing.T) {
	got := TrainResultName("cpu", 10, 10, true)
	if got != "mlpbench-train-cpu-n10-e10-vbatch.csv" {
		t.Errorf("train name = %q", got)
	}

	got = TrainResultName("gpu", 3, 5, false)
	if got != "mlpbench-train-gpu-n3-e5.csv" {
		t.Errorf("train name = %q", got)
	}

	got = TestResultName("cpu", 10)
	if got != "mlpbench-test-cpu-n10.csv" {
		t.Errorf("test name = %q", got)
	}
}
