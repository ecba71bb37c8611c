package reducer

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/clickhouse"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
)

func (db *DB) initCommands(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s %s (
			%s
		) ENGINE = %s
		ORDER BY (set_name, height, seq)
	`, db.table(reducer.CommandsTableName), db.OnCluster(),
		reducer.ColumnsToSchemaSQL(reducer.CommandColumns),
		db.Engine(clickhouse.ReplacingMergeTree, "applied_at"))
	if err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", reducer.CommandsTableName, err)
	}
	return nil
}

// Apply appends the block's commands to the command log. Re-applying a block
// produces identical (set_name, height, seq) keys that the engine collapses.
func (db *DB) Apply(ctx context.Context, at crdt.Point, cmds []crdt.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	batch, err := db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s (%s)`,
		db.table(reducer.CommandsTableName), reducer.ColumnsToNameList(reducer.CommandColumns)))
	if err != nil {
		return fmt.Errorf("prepare command batch: %w", err)
	}
	for _, row := range reducer.CommandRows(at, cmds, time.Now().UTC()) {
		if err := batch.AppendStruct(&row); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append command: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %d commands at height %d: %w", len(cmds), at.Height, err)
	}
	return nil
}

// History returns the most recent commands applied to set, newest first.
func (db *DB) History(ctx context.Context, set string, limit int) ([]reducer.CommandRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s FINAL
		WHERE set_name = ?
		ORDER BY height DESC, seq DESC
		LIMIT %d
	`, reducer.ColumnsToNameList(reducer.CommandColumns), db.table(reducer.CommandsTableName), limit)

	var rows []reducer.CommandRow
	if err := db.Select(ctx, &rows, query, set); err != nil {
		return nil, fmt.Errorf("command history of %s: %w", set, err)
	}
	return rows, nil
}
