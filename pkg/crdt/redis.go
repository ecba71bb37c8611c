package crdt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	rdb "github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedEvent is what the change feed carries for every applied command.
type FeedEvent struct {
	Command
	Set    string `json:"set"`
	Height uint64 `json:"height"`
	Slot   uint64 `json:"slot"`
}

// RedisStore keeps each set as a Redis SET and mirrors applied commands to a
// stream and to a per-set Pub/Sub channel.
//
//	<prefix>:set:<set>      SET of members
//	<prefix>:pairs:<set>    channel, one message per command
//	<prefix>:commands       stream of FeedEvent
//	<prefix>:progress       HASH height, slot, hash of the last applied block
type RedisStore struct {
	client *rdb.Client
	logger *zap.Logger
}

func NewRedisStore(client *rdb.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) SetKey(set string) string { return s.client.Key("set", set) }

func (s *RedisStore) Channel(set string) string { return s.client.Key("pairs", set) }

// ChannelPattern matches every per-set channel.
func (s *RedisStore) ChannelPattern() string { return s.client.Key("pairs", "*") }

func (s *RedisStore) Stream() string { return s.client.Key("commands") }

func (s *RedisStore) progressKey() string { return s.client.Key("progress") }

// Apply writes all set changes and the block point in one MULTI/EXEC, then
// publishes the feed. Feed delivery is best effort.
func (s *RedisStore) Apply(ctx context.Context, at Point, cmds []Command) error {
	_, err := s.client.GetClient().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range cmds {
			queue(ctx, pipe, s.SetKey(c.Set()), c)
		}
		pipe.HSet(ctx, s.progressKey(),
			"height", at.Height,
			"slot", at.Slot,
			"hash", at.Hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %d commands at height %d: %w", len(cmds), at.Height, err)
	}
	s.publish(ctx, at, cmds)
	return nil
}

// Emit applies a single command outside of any block.
func (s *RedisStore) Emit(ctx context.Context, cmd Command) error {
	pipe := s.client.GetClient().Pipeline()
	queue(ctx, pipe, s.SetKey(cmd.Set()), cmd)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("emit %s: %w", cmd.Op, err)
	}
	s.publish(ctx, Point{}, []Command{cmd})
	return nil
}

func queue(ctx context.Context, pipe redis.Pipeliner, key string, c Command) {
	switch c.Op {
	case OpAdd:
		pipe.SAdd(ctx, key, c.Value)
	case OpRemove:
		pipe.SRem(ctx, key, c.Value)
	}
}

func (s *RedisStore) publish(ctx context.Context, at Point, cmds []Command) {
	for _, c := range cmds {
		ev := FeedEvent{Command: c, Set: c.Set(), Height: at.Height, Slot: at.Slot}
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn("Failed to encode feed event", zap.Error(err))
			continue
		}
		s.client.XAdd(ctx, s.Stream(), map[string]interface{}{
			"op":     c.Op.String(),
			"set":    ev.Set,
			"height": at.Height,
			"data":   string(data),
		})
		s.client.Publish(ctx, s.Channel(ev.Set), string(data))
	}
}

// Members returns the members of set.
func (s *RedisStore) Members(ctx context.Context, set string) ([]string, error) {
	return s.client.SMembers(ctx, s.SetKey(set))
}

// Sets lists set names, optionally restricted to a glob pattern on the name.
func (s *RedisStore) Sets(ctx context.Context, pattern string, limit int) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	keys, err := s.client.ScanKeys(ctx, s.SetKey(pattern), limit)
	if err != nil {
		return nil, err
	}
	prefix := s.SetKey("")
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimPrefix(k, prefix)
	}
	return out, nil
}

// LastPoint returns the block most recently applied; ok is false before the first block.
func (s *RedisStore) LastPoint(ctx context.Context) (Point, bool, error) {
	vals, err := s.client.GetClient().HGetAll(ctx, s.progressKey()).Result()
	if err != nil {
		return Point{}, false, err
	}
	if len(vals) == 0 {
		return Point{}, false, nil
	}
	height, err := strconv.ParseUint(vals["height"], 10, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("progress height: %w", err)
	}
	slot, _ := strconv.ParseUint(vals["slot"], 10, 64)
	return Point{Height: height, Slot: slot, Hash: vals["hash"]}, true, nil
}

// DecodeFeedEvent parses a Pub/Sub payload or the "data" field of a stream entry.
func DecodeFeedEvent(data []byte) (FeedEvent, error) {
	var ev FeedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return FeedEvent{}, err
	}
	if ev.Set == "" {
		ev.Set = ev.Command.Set()
	}
	return ev, nil
}
