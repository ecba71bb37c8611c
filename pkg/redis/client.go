package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canopy-network/liquidityx/pkg/retry"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultStreamMaxLen = 10000
	DefaultKeyPrefix    = "liquidityx"
)

// Config holds connection settings. Zero values fall back to defaults.
type Config struct {
	Addr         string
	Password     string
	DB           int
	StreamMaxLen int64
	// KeyPrefix namespaces every key, channel and stream this process touches.
	KeyPrefix string
}

// ConfigFromEnv reads:
//   - REDIS_HOST, REDIS_PORT (default localhost:6379)
//   - REDIS_PASSWORD, REDIS_DB
//   - REDIS_STREAM_MAXLEN (default 10000, 0 = unlimited)
//   - REDIS_KEY_PREFIX (default "liquidityx")
func ConfigFromEnv() Config {
	return Config{
		Addr:         fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379")),
		Password:     utils.Env("REDIS_PASSWORD", ""),
		DB:           utils.EnvInt("REDIS_DB", 0),
		StreamMaxLen: utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen),
		KeyPrefix:    utils.Env("REDIS_KEY_PREFIX", DefaultKeyPrefix),
	}
}

// Client wraps go-redis with the key layout and the change feed helpers
// shared by the reducer and the query API.
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
	keyPrefix    string
}

// NewClient connects using ConfigFromEnv.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	return New(ctx, ConfigFromEnv(), logger)
}

// New connects and pings the server, retrying briefly so a Redis that is
// still starting does not fail the process.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	rdb := redis.NewClient(cfg.options())
	err := retry.WithBackoff(ctx, retry.QuickConfig(), logger, "redis_connection", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix),
		zap.Int64("stream_max_len", cfg.StreamMaxLen))
	return &Client{client: rdb, logger: logger, streamMaxLen: cfg.StreamMaxLen, keyPrefix: cfg.KeyPrefix}, nil
}

func (cfg Config) options() *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying go-redis client for pipelines and transactions.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// Key joins parts under the configured prefix with ':'.
func (c *Client) Key(parts ...string) string {
	return c.keyPrefix + ":" + strings.Join(parts, ":")
}

// StreamMaxLen is the approximate cap applied to XAdd.
func (c *Client) StreamMaxLen() int64 {
	return c.streamMaxLen
}

// Publish is best effort: failures are logged, never returned.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// PSubscribe subscribes to channel patterns such as "liquidityx:pairs:*".
// The caller closes the returned PubSub.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	c.logger.Debug("Subscribing to Redis patterns", zap.Strings("patterns", patterns))
	return c.client.PSubscribe(ctx, patterns...)
}

func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SMembers returns the members of a set; a missing set is empty.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.client.SMembers(ctx, key).Result()
}

// ScanKeys walks keys matching pattern without blocking the server.
func (c *Client) ScanKeys(ctx context.Context, pattern string, limit int) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// =============================================================================
// Redis Streams API
// =============================================================================

// XAdd appends to a stream, capped with an approximate MAXLEN when configured.
// Best effort: returns "" on failure after logging.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) string {
	id, err := c.client.XAdd(ctx, c.xaddArgs(stream, values)).Result()
	if err != nil {
		c.logger.Warn("Failed to add to Redis stream",
			zap.String("stream", stream),
			zap.Error(err))
		return ""
	}
	return id
}

func (c *Client) xaddArgs(stream string, values map[string]interface{}) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}
	return args
}

// XAddPipe queues an XAdd on a pipeline with the same capping as XAdd.
func (c *Client) XAddPipe(ctx context.Context, pipe redis.Pipeliner, stream string, values map[string]interface{}) {
	pipe.XAdd(ctx, c.xaddArgs(stream, values))
}

// XRead reads entries after lastID. Block of 0 returns immediately.
func (c *Client) XRead(ctx context.Context, stream, lastID string, count int64, block time.Duration) ([]redis.XStream, error) {
	if block == 0 {
		block = -1
	}
	return c.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
}

func (c *Client) XLen(ctx context.Context, stream string) (int64, error) {
	return c.client.XLen(ctx, stream).Result()
}

// XRange returns entries between two IDs inclusive ("-" and "+" for the ends).
func (c *Client) XRange(ctx context.Context, stream, start, end string, count int64) ([]redis.XMessage, error) {
	return c.client.XRangeN(ctx, stream, start, end, count).Result()
}

// XRevRange returns up to count entries, newest first.
func (c *Client) XRevRange(ctx context.Context, stream string, count int64) ([]redis.XMessage, error) {
	return c.client.XRevRangeN(ctx, stream, "+", "-", count).Result()
}

// IsNil reports whether err is the go-redis "no value" sentinel.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
