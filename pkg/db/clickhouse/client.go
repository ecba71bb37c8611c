package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/canopy-network/liquidityx/pkg/retry"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"go.uber.org/zap"
)

const (
	MergeTree            = "MergeTree"
	AggregatingMergeTree = "AggregatingMergeTree"
	ReplacingMergeTree   = "ReplacingMergeTree"
)

// Client is a connection pool bound to one database. Cluster, when set,
// makes DDL distributed and engines replicated.
type Client struct {
	Logger   *zap.Logger
	Db       driver.Conn
	Database string
	Cluster  string
}

type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// Config is everything needed to open a Client except the database name.
type Config struct {
	Hosts     []string
	User      string
	Password  string
	Cluster   string
	Strategy  string
	Component string
	Pool      Pool
}

var componentPools = map[string]Pool{
	"reducer": {MaxOpen: 20, MaxIdle: 5, MaxLifetime: 5 * time.Minute},
	"query":   {MaxOpen: 10, MaxIdle: 3, MaxLifetime: 5 * time.Minute},
}

// PoolFor returns the pool sizing of a component. Components without a fixed
// sizing read CLICKHOUSE_MAX_OPEN_CONNS, CLICKHOUSE_MAX_IDLE_CONNS and
// CLICKHOUSE_CONN_MAX_LIFETIME.
func PoolFor(component string) Pool {
	if p, ok := componentPools[component]; ok {
		return p
	}
	p := Pool{
		MaxOpen:     utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 75),
		MaxIdle:     utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 75),
		MaxLifetime: utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	p.MaxIdle = min(p.MaxIdle, p.MaxOpen)
	return p
}

// ConfigFromEnv reads CLICKHOUSE_ADDR, CLICKHOUSE_CLUSTER and
// CLICKHOUSE_CONN_STRATEGY. The address may list several replicas:
// clickhouse://user:pass@h1:9000,h2:9000/db.
func ConfigFromEnv(component string) Config {
	cfg := ParseDSN(utils.Env("CLICKHOUSE_ADDR", "clickhouse://localhost:9000?sslmode=disable"))
	cfg.Cluster = utils.Env("CLICKHOUSE_CLUSTER", "")
	cfg.Strategy = utils.Env("CLICKHOUSE_CONN_STRATEGY", "in_order")
	cfg.Component = component
	cfg.Pool = PoolFor(component)
	return cfg
}

// ParseDSN extracts credentials and replica hosts. The path and query are ignored.
func ParseDSN(dsn string) Config {
	rest := strings.TrimPrefix(strings.TrimPrefix(dsn, "clickhouse://"), "tcp://")
	cfg := Config{User: "default"}
	if auth, hosts, ok := strings.Cut(rest, "@"); ok {
		cfg.User, cfg.Password, _ = strings.Cut(auth, ":")
		rest = hosts
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	for _, h := range strings.Split(rest, ",") {
		if h = strings.TrimSpace(h); h != "" {
			cfg.Hosts = append(cfg.Hosts, h)
		}
	}
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = []string{"localhost:9000"}
	}
	return cfg
}

func openStrategy(name string) clickhouse.ConnOpenStrategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "round_robin", "roundrobin":
		return clickhouse.ConnOpenRoundRobin
	case "random":
		return clickhouse.ConnOpenRandom
	default:
		return clickhouse.ConnOpenInOrder
	}
}

func (cfg Config) options(database string, logger *zap.Logger) *clickhouse.Options {
	o := &clickhouse.Options{
		Addr:             cfg.Hosts,
		ConnOpenStrategy: openStrategy(cfg.Strategy),
		Auth:             clickhouse.Auth{Database: database, Username: cfg.User, Password: cfg.Password},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     cfg.Pool.MaxOpen,
		MaxIdleConns:     cfg.Pool.MaxIdle,
		ConnMaxLifetime:  cfg.Pool.MaxLifetime,
		Compression:      &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		o.Debugf = logger.Named("driver").Sugar().Debugf
	}
	return o
}

// New opens a pool on database, creating the database first if needed.
// Unreachable servers are retried for up to five minutes.
func New(ctx context.Context, logger *zap.Logger, database string, cfg Config) (Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	logger = logger.With(zap.String("db", database))
	c := Client{Logger: logger, Database: database, Cluster: cfg.Cluster}

	err := retry.WithBackoff(ctx, retry.DefaultConfig(), logger, "clickhouse_connection", func() error {
		conn, err := c.bootstrap(ctx, cfg)
		if err != nil {
			return err
		}
		c.Db = conn
		return nil
	})
	if err != nil {
		return Client{}, err
	}

	logger.Info("ClickHouse connected",
		zap.String("component", cfg.Component),
		zap.Strings("hosts", cfg.Hosts),
		zap.String("strategy", cfg.Strategy),
		zap.Int("max_open_conns", cfg.Pool.MaxOpen),
		zap.Int("max_idle_conns", cfg.Pool.MaxIdle))
	return c, nil
}

// bootstrap goes through the default database, since the target may not exist yet.
func (c *Client) bootstrap(ctx context.Context, cfg Config) (driver.Conn, error) {
	admin, err := clickhouse.Open(cfg.options("default", c.Logger))
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	defer func() { _ = admin.Close() }()
	if err := admin.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	ddl := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %q %s", c.Database, c.OnCluster())
	if err := admin.Exec(ctx, ddl); err != nil {
		return nil, retry.Permanent(fmt.Errorf("create database %s: %w", c.Database, err))
	}

	conn, err := clickhouse.Open(cfg.options(c.Database, c.Logger))
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return conn, nil
}

// SanitizeName turns an identifier such as a pipeline id into a database name.
func SanitizeName(id string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToLower(id))
}

func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Db.Exec(ctx, query, args...)
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	return c.Db.QueryRow(ctx, query, args...)
}

func (c *Client) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.Db.Select(ctx, dest, query, args...)
}

func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

func (c *Client) Ping(ctx context.Context) error { return c.Db.Ping(ctx) }

func (c *Client) Close() error { return c.Db.Close() }

// OnCluster is the ON CLUSTER clause for DDL, empty on a single node.
func (c *Client) OnCluster() string {
	if c.Cluster == "" {
		return ""
	}
	return fmt.Sprintf("ON CLUSTER %q", c.Cluster)
}

// Engine renders an ENGINE expression. On a cluster the Replicated variant
// is used and ClickHouse picks the keeper paths.
func (c *Client) Engine(family, version string) string {
	if c.Cluster != "" {
		family = "Replicated" + family
	}
	return family + "(" + version + ")"
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
