package temporal

import "fmt"

const DefaultNamespace = "liquidityx"

// Task queues and workflow IDs are per pipeline, so several pipelines can share
// a namespace.
const (
	QueueReduce = "reduce:%s"

	WorkflowIDHeadScan    = "%s:headscan"
	WorkflowIDReduceBlock = "%s:reduce:%d"
)

// ReduceQueue returns the task queue that serves pipeline.
func ReduceQueue(pipeline string) string { return fmt.Sprintf(QueueReduce, pipeline) }

// HeadScanWorkflowID is fixed per pipeline so only one scan runs at a time.
func HeadScanWorkflowID(pipeline string) string { return fmt.Sprintf(WorkflowIDHeadScan, pipeline) }

// ReduceBlockWorkflowID returns the deterministic ID for reducing height.
func ReduceBlockWorkflowID(pipeline string, height uint64) string {
	return fmt.Sprintf(WorkflowIDReduceBlock, pipeline, height)
}
