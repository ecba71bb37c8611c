package workflow

import (
	"time"

	"github.com/canopy-network/liquidityx/app/reducer/types"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReduceBlockWorkflow reduces one height and records it as done.
func (wc *Context) ReduceBlockWorkflow(ctx workflow.Context, in types.ReduceBlockInput) (types.ReduceBlockOutput, error) {
	start := workflow.Now(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    200 * time.Millisecond,
			BackoffCoefficient: 1.5,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    20,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out types.ReduceBlockOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ReduceBlock, in).Get(ctx, &out); err != nil {
		return types.ReduceBlockOutput{}, err
	}

	total := workflow.Now(ctx).Sub(start)
	record := types.RecordReducedInput{Output: out, TotalMs: float64(total.Microseconds()) / 1000.0}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecordReduced, record).Get(ctx, nil); err != nil {
		return types.ReduceBlockOutput{}, err
	}
	return out, nil
}
