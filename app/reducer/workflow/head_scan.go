package workflow

import (
	"time"

	"github.com/canopy-network/liquidityx/app/reducer/activity"
	"github.com/canopy-network/liquidityx/app/reducer/types"
	"github.com/canopy-network/liquidityx/pkg/temporal"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	HeadScanWorkflowName    = "HeadScanWorkflow"
	ReduceBlockWorkflowName = "ReduceBlockWorkflow"

	DefaultMaxBlocks = 500
)

// nonRetryable lists child failures a rerun within the same scan cannot fix.
var nonRetryable = []string{activity.ErrTypeMissingData}

// HeadScan reduces the heights between the last reduced block and the node's
// head, in order, one child workflow per height. Set removes and adds from
// different blocks do not commute, so heights are never run side by side.
func (wc *Context) HeadScan(ctx workflow.Context, in types.HeadScanInput) (*types.HeadResult, error) {
	logger := workflow.GetLogger(ctx)
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var latest, last uint64
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.GetLatestHead).Get(ctx, &latest); err != nil {
		return nil, err
	}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.GetLastReduced).Get(ctx, &last); err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, sdktemporal.NewApplicationError("unable to get head block", "no_blocks_found", nil)
	}
	if latest <= last {
		return &types.HeadResult{Start: last, End: last, Last: last, Latest: latest}, nil
	}

	limit := in.MaxBlocks
	if limit == 0 {
		limit = wc.MaxBlocks
	}
	if limit == 0 {
		limit = DefaultMaxBlocks
	}
	end := latest
	if end-last > limit {
		end = last + limit
	}

	logger.Info("HeadScan starting",
		"pipeline", wc.Pipeline,
		"range_start", last+1,
		"range_end", end,
		"latest", latest,
	)

	res := &types.HeadResult{Start: last + 1, End: end, Last: last, Latest: latest}
	for h := last + 1; h <= end; h++ {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: temporal.ReduceBlockWorkflowID(wc.Pipeline, h),
			RetryPolicy: &sdktemporal.RetryPolicy{
				InitialInterval:        time.Second,
				BackoffCoefficient:     2.0,
				MaximumInterval:        time.Minute,
				MaximumAttempts:        3,
				NonRetryableErrorTypes: nonRetryable,
			},
		})
		if err := workflow.ExecuteChildWorkflow(cctx, ReduceBlockWorkflowName, types.ReduceBlockInput{Height: h}).Get(cctx, nil); err != nil {
			logger.Error("HeadScan stopped", "pipeline", wc.Pipeline, "height", h, "error", err)
			return nil, err
		}
		res.Reduced++
	}

	logger.Info("HeadScan completed",
		"pipeline", wc.Pipeline,
		"reduced", res.Reduced,
		"remaining", latest-end,
	)
	return res, nil
}
