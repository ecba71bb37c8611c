package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config is an exponential backoff schedule.
type Config struct {
	// MaxRetries bounds WithBackoff; Backoff ignores it.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads every delay uniformly over +/- Jitter of its value.
	Jitter float64
}

// DefaultConfig is for connecting to infrastructure at startup.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   10,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.15,
	}
}

// QuickConfig is for lookups on the hot path of a block, where a caller is waiting.
func QuickConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       0.15,
	}
}

// ReconnectConfig is for readers that never give up, such as stream and Pub/Sub followers.
func ReconnectConfig() Config {
	return Config{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Delay is the wait after failed attempt n, counting from 1. It never exceeds MaxDelay.
func (c Config) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(n-1))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter > 0 {
		d += d * c.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Min(d, float64(c.MaxDelay)))
}

// Backoff counts consecutive failures of a long running loop.
type Backoff struct {
	cfg     Config
	attempt int
}

func (c Config) NewBackoff() *Backoff {
	return &Backoff{cfg: c}
}

// Next records a failure and returns how long to wait before trying again.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	return b.cfg.Delay(b.attempt)
}

// Attempt is the number of failures since the last Reset.
func (b *Backoff) Attempt() int { return b.attempt }

func (b *Backoff) Reset() { b.attempt = 0 }

// Wait sleeps for d unless ctx ends first, in which case it returns false.
func Wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. WithBackoff returns the wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithBackoff runs fn until it succeeds, returns a Permanent error, or
// cfg.MaxRetries attempts have failed.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := max(cfg.MaxRetries, 1)
	b := cfg.NewBackoff()

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := fn()
		if err == nil {
			if b.Attempt() > 0 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", b.Attempt()+1))
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		delay := b.Next()
		if b.Attempt() >= attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, err)
		}

		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", b.Attempt()),
			zap.Int("max_retries", attempts),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		if !Wait(ctx, delay) {
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
}
