package workflow

import "github.com/canopy-network/liquidityx/app/reducer/activity"

type Context struct {
	Pipeline string
	// MaxBlocks bounds one head scan run; DefaultMaxBlocks when zero.
	MaxBlocks       uint64
	ActivityContext *activity.Context
}
