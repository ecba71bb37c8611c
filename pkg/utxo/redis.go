package utxo

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	rdb "github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/retry"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultSpentTTL = 24 * time.Hour

// RedisStore keeps one JSON encoded output per key, <prefix>:utxo:<txhash>#<index>.
// Spent outputs expire after SpentTTL instead of being deleted.
type RedisStore struct {
	client   *rdb.Client
	logger   *zap.Logger
	spentTTL time.Duration
}

func NewRedisStore(client *rdb.Client, spentTTL time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spentTTL <= 0 {
		spentTTL = DefaultSpentTTL
	}
	return &RedisStore{client: client, logger: logger, spentTTL: spentTTL}
}

func (s *RedisStore) key(ref ledger.OutputRef) string {
	return s.client.Key("utxo", ref.String())
}

func (s *RedisStore) Get(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	out := make(map[ledger.OutputRef]ledger.Output, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = s.key(ref)
	}
	var vals []interface{}
	err := retry.WithBackoff(ctx, retry.QuickConfig(), s.logger, "utxo_mget", func() error {
		var err error
		vals, err = s.client.GetClient().MGet(ctx, keys...).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mget %d utxos: %w", len(keys), err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var o ledger.Output
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			s.logger.Warn("Dropping undecodable utxo entry",
				zap.String("ref", refs[i].String()),
				zap.Error(err))
			continue
		}
		out[refs[i]] = o
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, produced []ledger.Produced) error {
	if len(produced) == 0 {
		return nil
	}
	_, err := s.client.GetClient().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range produced {
			data, err := json.Marshal(p.Output)
			if err != nil {
				return fmt.Errorf("encode utxo %s: %w", p.Ref, err)
			}
			pipe.Set(ctx, s.key(p.Ref), data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store %d utxos: %w", len(produced), err)
	}
	return nil
}

func (s *RedisStore) Spend(ctx context.Context, refs []ledger.OutputRef) error {
	if len(refs) == 0 {
		return nil
	}
	_, err := s.client.GetClient().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, ref := range refs {
			pipe.Expire(ctx, s.key(ref), s.spentTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("spend %d utxos: %w", len(refs), err)
	}
	return nil
}
