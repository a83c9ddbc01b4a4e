package evaluate

import (
	"context"
	"fmt"

	"github.com/paveg/churnscope/internal/config"
	"github.com/paveg/churnscope/internal/parallel"
	"github.com/paveg/churnscope/internal/validation"
)

// SweepOptions controls when and how widely a sweep fans out.
// Zero fields fall back to the global configuration.
type SweepOptions struct {
	ParallelThreshold int
	Workers           int
}

func (o SweepOptions) resolve() SweepOptions {
	cfg := config.GetGlobalConfig()
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = cfg.ParallelThreshold
	}
	if o.Workers <= 0 {
		o.Workers = cfg.Workers()
	}
	return o
}

// Sweep evaluates every cutoff independently and returns one
// CutoffMetrics per cutoff, in the order given. Inputs of at least
// ParallelThreshold predictions are spread over a worker pool; the
// result is identical either way.
func Sweep(ctx context.Context, predictions []LabeledPrediction, cutoffs []float64, opts SweepOptions) ([]CutoffMetrics, error) {
	if err := validation.ValidateNotEmpty(len(predictions), "Sweep"); err != nil {
		return nil, err
	}
	for _, c := range cutoffs {
		if err := validation.ValidateCutoff(c, "Sweep"); err != nil {
			return nil, err
		}
	}
	if len(cutoffs) == 0 {
		return []CutoffMetrics{}, nil
	}

	opts = opts.resolve()
	if len(predictions) < opts.ParallelThreshold || len(cutoffs) == 1 {
		out := make([]CutoffMetrics, len(cutoffs))
		for i, c := range cutoffs {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("sweep cancelled: %w", err)
			}
			out[i] = Summarize(c, tally(predictions, c))
		}
		return out, nil
	}

	pool := parallel.NewWorkerPoolWithContext(ctx, opts.Workers)
	defer pool.Close()

	out := parallel.Process(pool, cutoffs, func(c float64) CutoffMetrics {
		return Summarize(c, tally(predictions, c))
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep cancelled: %w", err)
	}
	return out, nil
}
