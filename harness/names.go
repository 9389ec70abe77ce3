package harness

import "fmt"

// TrainResultName returns the conventional file name for training
// results: mlpbench-train-<backend>-n<runs>-e<epochs>.csv, with a
// -vbatch suffix when the batch size doubled each run.
func TrainResultName(
	backend string, numRuns, numEpochs int, varyBatchSize bool,
) string {
	suffix := ""
	if varyBatchSize {
		suffix = "-vbatch"
	}

	return fmt.Sprintf(
		"mlpbench-train-%s-n%d-e%d%s.csv",
		backend, numRuns, numEpochs, suffix,
	)
}

// TestResultName returns the conventional file name for inference
// results: mlpbench-test-<backend>-n<runs>.csv.
func TestResultName(backend string, numRuns int) string {
	return fmt.Sprintf("mlpbench-test-%s-n%d.csv", backend, numRuns)
}
