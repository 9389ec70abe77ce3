package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// fileConfig mirrors the optional TOML benchmark file. Pointer fields
// distinguish absent keys from zero values.
type fileConfig struct {
	Backend       *string  `toml:"backend"`
	Runs          *int     `toml:"runs"`
	Epochs        *int     `toml:"epochs"`
	VaryBatchSize *bool    `toml:"vary_batch_size"`
	BatchSize     *int     `toml:"batch_size"`
	HiddenDim     *int     `toml:"hidden_dim"`
	Layers        *int     `toml:"layers"`
	LearningRate  *float64 `toml:"learning_rate"`
	Seed          *int64   `toml:"seed"`
	DataDir       *string  `toml:"data_dir"`
	OutDir        *string  `toml:"out_dir"`
}

// applyConfigFile overlays values from a TOML file onto cfg. A file
// value is applied only when the corresponding flag was not set
// explicitly on the command line.
func applyConfigFile(
	cfg *runConfig, path string, flags *pflag.FlagSet,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse TOML: %w", err)
	}

	overlay := func(flag string, apply func()) {
		if !flags.Changed(flag) {
			apply()
		}
	}

	if fc.Backend != nil {
		overlay("backend", func() { cfg.backend = *fc.Backend })
	}
	if fc.Runs != nil {
		overlay("runs", func() { cfg.runs = *fc.Runs })
	}
	if fc.Epochs != nil {
		overlay("epochs", func() { cfg.epochs = *fc.Epochs })
	}
	if fc.VaryBatchSize != nil {
		overlay("vary-batch-size", func() { cfg.varyBatchSize = *fc.VaryBatchSize })
	}
	if fc.BatchSize != nil {
		overlay("batch-size", func() { cfg.batchSize = *fc.BatchSize })
	}
	if fc.HiddenDim != nil {
		overlay("hidden-dim", func() { cfg.hiddenDim = *fc.HiddenDim })
	}
	if fc.Layers != nil {
		overlay("layers", func() { cfg.layers = *fc.Layers })
	}
	if fc.LearningRate != nil {
		overlay("learning-rate", func() { cfg.learningRate = *fc.LearningRate })
	}
	if fc.Seed != nil {
		overlay("seed", func() { cfg.seed = *fc.Seed })
	}
	if fc.DataDir != nil {
		overlay("data-dir", func() { cfg.dataDir = *fc.DataDir })
	}
	if fc.OutDir != nil {
		overlay("out-dir", func() { cfg.outDir = *fc.OutDir })
	}

	return nil
}
