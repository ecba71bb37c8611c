package reducer

import (
	"context"
	"fmt"

	"github.com/canopy-network/liquidityx/pkg/db/clickhouse"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"go.uber.org/zap"
)

// DB stores reduce progress and the applied command log of one pipeline.
type DB struct {
	clickhouse.Client
	Name     string
	Pipeline string
}

// New connects using CLICKHOUSE_ADDR and creates the tables. The database is
// CLICKHOUSE_DB (default "liquidityx"); component picks the pool sizing.
func New(ctx context.Context, logger *zap.Logger, pipeline, component string) (*DB, error) {
	name := clickhouse.SanitizeName(utils.Env("CLICKHOUSE_DB", "liquidityx"))
	client, err := clickhouse.New(ctx, logger.With(zap.String("component", component+"_db")), name, clickhouse.ConfigFromEnv(component))
	if err != nil {
		return nil, err
	}
	db := &DB{Client: client, Name: name, Pipeline: pipeline}
	if err := db.InitializeDB(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) DatabaseName() string { return db.Name }

// InitializeDB creates the progress and command tables if they do not exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initialize reduce_progress model", zap.String("database", db.Name))
	if err := db.initProgress(ctx); err != nil {
		return err
	}
	db.Logger.Info("Initialize crdt_commands model", zap.String("database", db.Name))
	return db.initCommands(ctx)
}

func (db *DB) table(name string) string {
	return fmt.Sprintf("%q.%q", db.Name, name)
}
