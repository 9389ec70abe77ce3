// Package main provides the CLI entry point for mlpbench, a benchmark
// of MLP training and inference throughput on MNIST.
package main

import (
	"context"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/rsinha/mlpbench/harness"
	"github.com/rsinha/mlpbench/mnist"
	"github.com/rsinha/mlpbench/nn"
	"github.com/rsinha/mlpbench/report"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "mlpbench",
		Short: "MLP training and inference throughput benchmark",
		Long: `Mlpbench trains a small fully connected network on MNIST a
configurable number of times, timing every epoch and every inference pass,
and persists the recorded timings as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		cfg        runConfig
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the training and inference benchmark",
		Long: `Train a freshly initialized MLP once per benchmark run, recording
per-epoch wall-clock durations, then time inference-only passes over the test
set, and write both result sets to CSV files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				err := applyConfigFile(&cfg, configPath, cmd.Flags())
				if err != nil {
					return fmt.Errorf("load config %s: %w", configPath, err)
				}
			}

			return runBenchmark(cmd.Context(), logger, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.backend, "backend", "cpu",
		"Backend label recorded in result file names (cpu, gpu)")
	flags.IntVarP(&cfg.runs, "runs", "n", 10,
		"Number of benchmark runs")
	flags.IntVarP(&cfg.epochs, "epochs", "e", 10,
		"Number of training epochs per run")
	flags.BoolVar(&cfg.varyBatchSize, "vary-batch-size", false,
		"Double the batch size every run")
	flags.IntVar(&cfg.batchSize, "batch-size", 0,
		"Initial batch size (0 = 16 when varying, 256 otherwise)")
	flags.IntVar(&cfg.hiddenDim, "hidden-dim", 32,
		"Hidden layer width")
	flags.IntVar(&cfg.layers, "layers", 2,
		"Number of hidden layers")
	flags.Float64Var(&cfg.learningRate, "learning-rate", 0.1,
		"SGD learning rate")
	flags.Int64Var(&cfg.seed, "seed", 0,
		"Seed for weight init and batch shuffling")
	flags.StringVar(&cfg.dataDir, "data-dir", "mnist_data",
		"Directory for cached MNIST files")
	flags.StringVar(&cfg.outDir, "out-dir", "results",
		"Directory for result CSV files")
	flags.StringVar(&configPath, "config", "",
		"Path to a TOML benchmark config (flags win when set explicitly)")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output the summary as JSON instead of a table")

	return cmd
}

type runConfig struct {
	backend       string
	runs          int
	epochs        int
	varyBatchSize bool
	batchSize     int
	hiddenDim     int
	layers        int
	learningRate  float64
	seed          int64
	dataDir       string
	outDir        string
	outputJSON    bool
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) error {
	if cfg.batchSize == 0 {
		if cfg.varyBatchSize {
			cfg.batchSize = 16
		} else {
			cfg.batchSize = 256
		}
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("backend", cfg.backend),
		slog.Int("runs", cfg.runs),
		slog.Int("epochs", cfg.epochs),
		slog.Int("batch_size", cfg.batchSize),
		slog.Bool("vary_batch_size", cfg.varyBatchSize),
		slog.Int64("seed", cfg.seed),
	)

	ds, err := mnist.Load(cfg.dataDir)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	numTrain, inputDim := ds.TrainImages.Dims()
	logger.InfoContext(ctx, "dataset loaded",
		slog.Int("train_examples", numTrain),
		slog.Int("test_examples", len(ds.TestLabels)),
		slog.Int("input_dim", inputDim),
	)

	rng := mrand.New(mrand.NewSource(cfg.seed))

	train, err := harness.NewTrainBenchmark(
		cfg.batchSize, cfg.varyBatchSize, cfg.runs,
	)
	if err != nil {
		return fmt.Errorf("configure train benchmark: %w", err)
	}

	modelCfg := nn.Config{
		NumLayers: cfg.layers,
		InputDim:  inputDim,
		HiddenDim: cfg.hiddenDim,
		OutputDim: 10,
	}

	var model *nn.MLP

	for {
		runIndex, batchSize, ok := train.Next()
		if !ok {
			break
		}

		logger.InfoContext(ctx, "starting run",
			slog.Int("run", runIndex),
			slog.Int("batch_size", batchSize),
		)

		model = nn.NewMLP(modelCfg, rng)
		opt := &nn.SGD{LearningRate: cfg.learningRate}

		for e := 0; e < cfg.epochs; e++ {
			start := time.Now()

			batches := mnist.NewBatcher(
				rng, batchSize, ds.TrainImages, ds.TrainLabels,
			)

			for {
				x, y, more := batches.Next()
				if !more {
					break
				}

				_, grads := model.LossAndGrad(x, y)
				opt.Update(model, grads)
			}

			accuracy := model.Evaluate(ds.TestImages, ds.TestLabels)
			elapsed := time.Since(start).Seconds()

			if err := train.AddEpoch(elapsed); err != nil {
				return fmt.Errorf("record epoch: %w", err)
			}

			fmt.Printf("Epoch %d: Test accuracy %.3f, Time %.3f (s)\n",
				e, accuracy, elapsed)
		}
	}

	// Inference passes reuse the model from the final training run,
	// timing accuracy evaluation over the full test set.
	test, err := harness.NewTestBenchmark(cfg.runs)
	if err != nil {
		return fmt.Errorf("configure test benchmark: %w", err)
	}

	for {
		i, ok := test.Next()
		if !ok {
			break
		}

		accuracy := model.Evaluate(ds.TestImages, ds.TestLabels)
		fmt.Printf("Iteration %d: Test accuracy %.3f\n", i, accuracy)
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	trainPath := filepath.Join(cfg.outDir, harness.TrainResultName(
		cfg.backend, cfg.runs, cfg.epochs, cfg.varyBatchSize,
	))
	if err := train.WriteCSV(trainPath); err != nil {
		return fmt.Errorf("write train results: %w", err)
	}

	testPath := filepath.Join(cfg.outDir, harness.TestResultName(
		cfg.backend, cfg.runs,
	))
	if err := test.WriteCSV(testPath); err != nil {
		return fmt.Errorf("write test results: %w", err)
	}

	logger.InfoContext(ctx, "results written",
		slog.String("train", trainPath),
		slog.String("test", testPath),
	)

	summaries := report.Summarize(train.Runs())

	if cfg.outputJSON {
		if err := report.GenerateJSON(os.Stdout, summaries); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(os.Stdout, summaries); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}
