package reducer

import "time"

const ProgressTableName = "reduce_progress"

var ProgressColumns = []ColumnDef{
	{Name: "pipeline", Type: "LowCardinality(String)"},
	{Name: "height", Type: "UInt64", Codec: "Delta, ZSTD(1)"},
	{Name: "slot", Type: "UInt64", Codec: "Delta, ZSTD(1)"},
	{Name: "block_hash", Type: "String"},
	{Name: "reduced_at", Type: "DateTime64(6)"},
	{Name: "reducing_time_ms", Type: "Float64"},
	{Name: "commands", Type: "UInt32"},
	{Name: "unresolved", Type: "UInt32"},
	{Name: "reducing_detail", Type: "String", Codec: "ZSTD(3)"},
}

// ReduceProgress records one reduced block.
type ReduceProgress struct {
	Pipeline       string    `ch:"pipeline"`
	Height         uint64    `ch:"height"`
	Slot           uint64    `ch:"slot"`
	BlockHash      string    `ch:"block_hash"`
	ReducedAt      time.Time `ch:"reduced_at"`
	ReducingTimeMs float64   `ch:"reducing_time_ms"`
	Commands       uint32    `ch:"commands"`
	Unresolved     uint32    `ch:"unresolved"`
	// ReducingDetail is a JSON document with the per reducer stats.
	ReducingDetail string `ch:"reducing_detail"`
}

// Gap is a missing height range in the reduce progress.
type Gap struct {
	From uint64 `ch:"from_h" json:"from"`
	To   uint64 `ch:"to_h" json:"to"`
}
