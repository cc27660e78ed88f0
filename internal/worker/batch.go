package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/rulescan/internal/model"
	"github.com/ppiankov/rulescan/internal/source"
)

// Runner runs the pipeline for one dataset input
type Runner interface {
	Run(ctx context.Context, input string) (*model.Report, error)
}

// DatasetJob runs one dataset through a Runner
type DatasetJob struct {
	Index   int
	Input   string
	Runner  Runner
	Limiter *Limiter // optional, paces URL inputs per host
}

// Execute executes the job
func (j *DatasetJob) Execute(ctx context.Context) Result {
	res := &BatchResult{Index: j.Index, Input: j.Input}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Input); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	res.Report, res.Error = j.Runner.Run(ctx, j.Input)
	return res
}

// BatchResult is the outcome for one input
type BatchResult struct {
	Index  int
	Input  string
	Report *model.Report
	Error  error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many datasets concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. A positive requestsPerSecond
// paces URL inputs per host.
func NewBatchProcessor(runner Runner, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// ErrNotRun marks an input the batch ended before running
var ErrNotRun = errors.New("not run")

// ProcessInputs runs every input and returns one result per input, in input
// order. Inputs the context cut off carry ErrNotRun wrapping ctx.Err().
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*BatchResult {
	out := make([]*BatchResult, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, input := range inputs {
		submitted := pool.Submit(&DatasetJob{
			Index:   i,
			Input:   input,
			Runner:  b.runner,
			Limiter: b.limiter,
		})
		if !submitted {
			break
		}
	}

	for _, r := range pool.Wait() {
		res := r.(*BatchResult)
		out[res.Index] = res
	}

	for i, res := range out {
		if res != nil {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		out[i] = &BatchResult{Index: i, Input: inputs[i], Error: fmt.Errorf("%w: %w", ErrNotRun, cause)}
	}
	return out
}

// ProcessFile reads inputs from a list file (one per line) and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	inputs, err := source.ReadList(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	return b.ProcessInputs(ctx, inputs), nil
}
