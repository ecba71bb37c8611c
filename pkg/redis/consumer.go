package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/canopy-network/liquidityx/pkg/retry"
	"go.uber.org/zap"
)

// StreamConsumerConfig configures a StreamConsumer.
type StreamConsumerConfig struct {
	Stream string

	// LastID is where tailing starts: "$" (default) for entries added after
	// Run is called, "0" for the whole stream, or an entry ID to resume after.
	LastID string

	Count int64         // entries per XREAD, default 100
	Block time.Duration // default 5s

	// Retry paces reads after a Redis error. Zero means retry.ReconnectConfig().
	Retry retry.Config

	Logger *zap.Logger
}

// MessageHandler handles one stream entry. An error is logged and the entry is skipped.
type MessageHandler func(ctx context.Context, msg Message) error

// Message is one stream entry.
type Message struct {
	ID     string
	Stream string
	Values map[string]interface{}
}

// StreamConsumer tails a single stream. It does not use consumer groups, so
// every process running one sees every entry.
type StreamConsumer struct {
	client *Client
	cfg    StreamConsumerConfig
	logger *zap.Logger
}

func NewStreamConsumer(client *Client, cfg StreamConsumerConfig) (*StreamConsumer, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Stream == "" {
		return nil, errors.New("stream name is required")
	}
	if cfg.LastID == "" {
		cfg.LastID = "$"
	}
	if cfg.Count <= 0 {
		cfg.Count = 100
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry = retry.ReconnectConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{client: client, cfg: cfg, logger: logger.With(zap.String("stream", cfg.Stream))}, nil
}

// Run delivers entries to handler in stream order until ctx ends, which is
// the only way it returns. After a Redis error it backs off and resumes from
// the last delivered entry.
func (sc *StreamConsumer) Run(ctx context.Context, handler MessageHandler) error {
	cursor := sc.cfg.LastID
	backoff := sc.cfg.Retry.NewBackoff()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			msgs []Message
			err  error
		)
		if cursor == "$" {
			// pin "$" to a concrete ID so entries added between reads are not lost
			cursor, err = sc.tail(ctx)
		} else {
			msgs, err = sc.read(ctx, cursor)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := backoff.Next()
			sc.logger.Warn("Stream read failed, backing off",
				zap.Int("attempt", backoff.Attempt()),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			if !retry.Wait(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		if backoff.Attempt() > 0 {
			sc.logger.Info("Stream read recovered", zap.Int("failures", backoff.Attempt()))
			backoff.Reset()
		}

		for _, msg := range msgs {
			if err := handler(ctx, msg); err != nil {
				sc.logger.Error("Stream entry handler failed",
					zap.String("id", msg.ID),
					zap.Error(err))
			}
			cursor = msg.ID
		}
	}
}

// tail returns the ID of the newest entry, or "0-0" for an empty stream.
func (sc *StreamConsumer) tail(ctx context.Context) (string, error) {
	last, err := sc.client.XRevRange(ctx, sc.cfg.Stream, 1)
	if err != nil {
		return "$", err
	}
	if len(last) == 0 {
		return "0-0", nil
	}
	return last[0].ID, nil
}

// read returns the entries after cursor. A block timeout is an empty read, not an error.
func (sc *StreamConsumer) read(ctx context.Context, cursor string) ([]Message, error) {
	streams, err := sc.client.XRead(ctx, sc.cfg.Stream, cursor, sc.cfg.Count, sc.cfg.Block)
	if IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msgs []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			msgs = append(msgs, Message{ID: m.ID, Stream: s.Stream, Values: m.Values})
		}
	}
	return msgs, nil
}

// GetData returns the "data" field as bytes.
func (m *Message) GetData() []byte {
	return []byte(m.GetString("data"))
}

// GetString returns a string field, or "" if it is absent or not a string.
func (m *Message) GetString(field string) string {
	switch v := m.Values[field].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// GetHeight returns the "height" field, or 0.
func (m *Message) GetHeight() uint64 {
	return parseUint64(m.Values["height"])
}

func parseUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case string:
		u, _ := strconv.ParseUint(n, 10, 64)
		return u
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case uint64:
		return n
	case int:
		if n < 0 {
			return 0
		}
		return uint64(n)
	default:
		return 0
	}
}
