package converter

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/NunoTeixeiraMota/image-refac/types"
)

// RunBatch converts every task with at most concurrency workers and returns
// exactly one outcome per task. Zero concurrency means one worker per CPU.
// A failing task never aborts the batch and outcomes carry no ordering
// guarantee relative to tasks. Size totals cover successful outcomes only.
func (c *Converter) RunBatch(tasks []types.Task, concurrency int) (types.BatchResult, error) {
	if len(tasks) == 0 {
		return types.BatchResult{}, ErrNoTasks
	}
	if concurrency < 0 {
		return types.BatchResult{}, ErrInvalidConcurrency
	}
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}

	c.logger.Info("batch started", "tasks", len(tasks), "workers", concurrency)

	outcomes := make(chan types.Outcome, len(tasks))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			outcomes <- c.ConvertFile(task)
			return nil
		})
	}
	// workers only ever return nil
	_ = g.Wait()
	close(outcomes)

	result := types.BatchResult{Outcomes: make([]types.Outcome, 0, len(tasks))}
	failed := 0
	for out := range outcomes {
		result.Outcomes = append(result.Outcomes, out)
		if !out.Success {
			failed++
			continue
		}
		result.TotalOriginalBytes += out.OriginalBytes
		result.TotalConvertedBytes += out.ConvertedBytes
	}
	if result.TotalOriginalBytes > 0 {
		result.TotalReductionPct = types.Round2(
			float64(result.TotalOriginalBytes-result.TotalConvertedBytes) / float64(result.TotalOriginalBytes) * 100)
	}

	c.logger.Info("batch finished",
		"tasks", len(tasks),
		"failed", failed,
		"bytes_in", result.TotalOriginalBytes,
		"bytes_out", result.TotalConvertedBytes)
	return result, nil
}
