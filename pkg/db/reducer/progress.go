package reducer

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/liquidityx/pkg/db/clickhouse"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
)

// initProgress creates the base progress table, an aggregate holding the max
// height per pipeline, and the materialized view feeding it.
func (db *DB) initProgress(ctx context.Context) error {
	ddlBase := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s %s (
			%s
		) ENGINE = %s
		ORDER BY (pipeline, height)
	`, db.table(reducer.ProgressTableName), db.OnCluster(),
		reducer.ColumnsToSchemaSQL(reducer.ProgressColumns),
		db.Engine(clickhouse.MergeTree, ""))
	if err := db.Exec(ctx, ddlBase); err != nil {
		return fmt.Errorf("create %s table: %w", reducer.ProgressTableName, err)
	}

	ddlAgg := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s %s (
			pipeline LowCardinality(String),
			max_height AggregateFunction(max, UInt64)
		) ENGINE = %s
		ORDER BY (pipeline)
	`, db.table(reducer.ProgressTableName+"_agg"), db.OnCluster(), db.Engine(clickhouse.AggregatingMergeTree, ""))
	if err := db.Exec(ctx, ddlAgg); err != nil {
		return fmt.Errorf("create %s_agg table: %w", reducer.ProgressTableName, err)
	}

	ddlMV := fmt.Sprintf(`
		CREATE MATERIALIZED VIEW IF NOT EXISTS %s %s
		TO %s AS
		SELECT pipeline, maxState(height) AS max_height
		FROM %s
		GROUP BY pipeline
	`, db.table(reducer.ProgressTableName+"_mv"), db.OnCluster(),
		db.table(reducer.ProgressTableName+"_agg"),
		db.table(reducer.ProgressTableName))
	if err := db.Exec(ctx, ddlMV); err != nil {
		return fmt.Errorf("create %s_mv: %w", reducer.ProgressTableName, err)
	}
	return nil
}

// RecordReduced stores the progress row for one block.
func (db *DB) RecordReduced(ctx context.Context, p reducer.ReduceProgress) error {
	p.Pipeline = db.Pipeline
	if p.ReducedAt.IsZero() {
		p.ReducedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.table(reducer.ProgressTableName), reducer.ColumnsToNameList(reducer.ProgressColumns))
	return db.Exec(ctx, query,
		p.Pipeline,
		p.Height,
		p.Slot,
		p.BlockHash,
		p.ReducedAt,
		p.ReducingTimeMs,
		p.Commands,
		p.Unresolved,
		p.ReducingDetail,
	)
}

// LastReduced returns the highest reduced height, preferring the aggregate and
// falling back to the base table while the aggregate is still empty.
func (db *DB) LastReduced(ctx context.Context) (uint64, error) {
	var h uint64
	query := fmt.Sprintf(`SELECT maxMerge(max_height) FROM %s WHERE pipeline = ?`, db.table(reducer.ProgressTableName+"_agg"))
	if err := db.QueryRow(ctx, query, db.Pipeline).Scan(&h); err == nil && h != 0 {
		return h, nil
	}

	var fallback uint64
	fallbackQuery := fmt.Sprintf(`SELECT max(height) FROM %s WHERE pipeline = ?`, db.table(reducer.ProgressTableName))
	if err := db.QueryRow(ctx, fallbackQuery, db.Pipeline).Scan(&fallback); err != nil && !clickhouse.IsNoRows(err) {
		return 0, err
	}
	return fallback, nil
}

// HasReduced reports whether height already has a progress row.
func (db *DB) HasReduced(ctx context.Context, height uint64) (bool, error) {
	var n uint64
	query := fmt.Sprintf(`SELECT count() FROM %s WHERE pipeline = ? AND height = ?`, db.table(reducer.ProgressTableName))
	if err := db.QueryRow(ctx, query, db.Pipeline, height).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindGaps returns missing [From, To] ranges strictly between reduced
// heights. The tail up to the chain head is left to the caller.
func (db *DB) FindGaps(ctx context.Context) ([]reducer.Gap, error) {
	query := fmt.Sprintf(`
		SELECT CAST(assumeNotNull(prev_h) + 1 AS UInt64) AS from_h, CAST(h - 1 AS UInt64) AS to_h
		FROM (
		  SELECT
		    height AS h,
		    lagInFrame(toNullable(height)) OVER (
		      PARTITION BY pipeline
		      ORDER BY height
		      ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
		    ) AS prev_h
		  FROM %s
		  WHERE pipeline = ?
		  ORDER BY height
		)
		WHERE prev_h IS NOT NULL AND h > prev_h + 1
		ORDER BY from_h
	`, db.table(reducer.ProgressTableName))

	var rows []reducer.Gap
	if err := db.Select(ctx, &rows, query, db.Pipeline); err != nil {
		return nil, err
	}
	return rows, nil
}
