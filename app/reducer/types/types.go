package types

import "github.com/canopy-network/liquidityx/pkg/liquidity"

type ReduceBlockInput struct {
	Height uint64 `json:"height"`
}

// ReduceBlockOutput summarizes one reduced block. Detail holds the stats of
// every configured reducer, keyed by its pool prefix.
type ReduceBlockOutput struct {
	Height     uint64                     `json:"height"`
	Slot       uint64                     `json:"slot"`
	Hash       string                     `json:"hash"`
	Stats      liquidity.Stats            `json:"stats"`
	Detail     map[string]liquidity.Stats `json:"detail"`
	Stored     int                        `json:"stored"`
	Spent      int                        `json:"spent"`
	DurationMs float64                    `json:"durationMs"`
}

// Commands is how many set commands the block produced.
func (o ReduceBlockOutput) Commands() int { return o.Stats.Added + o.Stats.Removed }

type RecordReducedInput struct {
	Output ReduceBlockOutput `json:"output"`
	// TotalMs is the workflow's end to end time, activity scheduling included.
	TotalMs float64 `json:"totalMs"`
}

type HeadScanInput struct {
	// MaxBlocks bounds how many heights one run reduces; zero means the worker default.
	MaxBlocks uint64 `json:"maxBlocks"`
}

// HeadResult summarizes a head scan.
type HeadResult struct {
	Start   uint64 `json:"start"`
	End     uint64 `json:"end"`
	Last    uint64 `json:"last"`
	Latest  uint64 `json:"latest"`
	Reduced uint64 `json:"reduced"`
}
