package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func newTestFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", "cpu", "")
	flags.Int("runs", 10, "")
	flags.Int("epochs", 10, "")
	flags.Bool("vary-batch-size", false, "")
	flags.Int("batch-size", 0, "")
	flags.Int("hidden-dim", 32, "")
	flags.Int("layers", 2, "")
	flags.Float64("learning-rate", 0.1, "")
	flags.Int64("seed", 0, "")
	flags.String("data-dir", "mnist_data", "")
	flags.String("out-dir", "results", "")

	return flags
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestApplyConfigFileOverlays(t *testing.T) {
	cfg := runConfig{backend: "cpu", runs: 10, epochs: 10, learningRate: 0.1}
	path := writeConfig(t, `
backend = "gpu"
runs = 3
epochs = 5
vary_batch_size = true
learning_rate = 0.01
`)

	if err := applyConfigFile(&cfg, path, newTestFlags()); err != nil {
		t.Fatalf("applyConfigFile failed: %v", err)
	}

	if cfg.backend != "gpu" {
		t.Errorf("backend = %q, want gpu", cfg.backend)
	}
	if cfg.runs != 3 {
		t.Errorf("runs = %d, want 3", cfg.runs)
	}
	if cfg.epochs != 5 {
		t.Errorf("epochs = %d, want 5", cfg.epochs)
	}
	if !cfg.varyBatchSize {
		t.Error("vary_batch_size not applied")
	}
	if cfg.learningRate != 0.01 {
		t.Errorf("learning rate = %v, want 0.01", cfg.learningRate)
	}
}

func TestExplicitFlagsWinOverConfig(t *testing.T) {
	cfg := runConfig{runs: 7, epochs: 10}

	flags := newTestFlags()
	if err := flags.Set("runs", "7"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	path := writeConfig(t, "runs = 3\nepochs = 5\n")

	if err := applyConfigFile(&cfg, path, flags); err != nil {
		t.Fatalf("applyConfigFile failed: %v", err)
	}

	if cfg.runs != 7 {
		t.Errorf("runs = %d, want explicit flag value 7", cfg.runs)
	}
	if cfg.epochs != 5 {
		t.Errorf("epochs = %d, want file value 5", cfg.epochs)
	}
}

func TestApplyConfigFileMissing(t *testing.T) {
	cfg := runConfig{}
	err := applyConfigFile(&cfg, filepath.Join(t.TempDir(), "nope.toml"), newTestFlags())
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyConfigFileBadTOML(t *testing.T) {
	cfg := runConfig{}
	path := writeConfig(t, "runs = [not toml")

	if err := applyConfigFile(&cfg, path, newTestFlags()); err == nil {
		t.Error("expected error for invalid TOML")
	}
}
