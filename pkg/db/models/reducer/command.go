package reducer

import (
	"time"

	"github.com/canopy-network/liquidityx/pkg/crdt"
)

const CommandsTableName = "crdt_commands"

var CommandColumns = []ColumnDef{
	{Name: "height", Type: "UInt64", Codec: "Delta, ZSTD(1)"},
	{Name: "slot", Type: "UInt64", Codec: "Delta, ZSTD(1)"},
	{Name: "block_hash", Type: "String"},
	{Name: "seq", Type: "UInt32"},
	{Name: "op", Type: "Enum8('add' = 1, 'remove' = 2)"},
	{Name: "set_name", Type: "String"},
	{Name: "value", Type: "String", Codec: "ZSTD(3)"},
	{Name: "applied_at", Type: "DateTime64(6)"},
}

// CommandRow is one applied set command. Seq is the position of the command
// within its block, so (height, seq) replays commands in emission order.
type CommandRow struct {
	Height    uint64    `ch:"height" json:"height"`
	Slot      uint64    `ch:"slot" json:"slot"`
	BlockHash string    `ch:"block_hash" json:"block_hash"`
	Seq       uint32    `ch:"seq" json:"seq"`
	Op        string    `ch:"op" json:"op"`
	Set       string    `ch:"set_name" json:"set"`
	Value     string    `ch:"value" json:"value"`
	AppliedAt time.Time `ch:"applied_at" json:"applied_at"`
}

// CommandRows converts a block's commands into rows.
func CommandRows(at crdt.Point, cmds []crdt.Command, now time.Time) []CommandRow {
	rows := make([]CommandRow, len(cmds))
	for i, c := range cmds {
		rows[i] = CommandRow{
			Height:    at.Height,
			Slot:      at.Slot,
			BlockHash: at.Hash,
			Seq:       uint32(i),
			Op:        c.Op.String(),
			Set:       c.Set(),
			Value:     c.Value,
			AppliedAt: now,
		}
	}
	return rows
}
