package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/go-jose/go-jose/v4/json"
	"golang.org/x/time/rate"
)

// StatusError is a non-2xx answer from a node.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s answered %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
}

// Retryable reports whether another endpoint might answer differently.
func (e *StatusError) Retryable() bool { return e.Code >= 500 }

// Opts configures an HTTPClient. Zero values take the defaults of OptsFromEnv.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// OptsFromEnv reads RPC_ENDPOINTS, RPC_TIMEOUT, RPC_RPS and RPC_BURST.
func OptsFromEnv() Opts {
	return Opts{
		Endpoints: utils.EnvList("RPC_ENDPOINTS", nil),
		Timeout:   utils.EnvDuration("RPC_TIMEOUT", 15*time.Second),
		RPS:       utils.EnvInt("RPC_RPS", 20),
		Burst:     utils.EnvInt("RPC_BURST", 40),
	}
}

func (o Opts) withDefaults() Opts {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 2 * o.RPS
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}
	return o
}

// breaker trips after a run of consecutive failures and stays open for a cooldown.
type breaker struct {
	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return true
	}
	if now.Before(b.openUntil) {
		return false
	}
	b.openUntil, b.failures = time.Time{}, 0
	return true
}

func (b *breaker) record(err error, now time.Time, threshold int, cooldown time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		return
	}
	if b.failures++; b.failures >= threshold {
		b.openUntil = now.Add(cooldown)
	}
}

// HTTPClient talks JSON to a list of node endpoints in order, skipping
// endpoints whose breaker is open. All endpoints share one rate limit.
type HTTPClient struct {
	endpoints []string
	breakers  map[string]*breaker
	http      *http.Client
	limiter   *rate.Limiter
	opts      Opts
}

var _ Client = (*HTTPClient)(nil)

func NewHTTP(o Opts) *HTTPClient {
	o = o.withDefaults()
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		hc.Timeout = o.Timeout
	}
	c := &HTTPClient{
		endpoints: utils.Dedup(o.Endpoints),
		breakers:  map[string]*breaker{},
		http:      hc,
		limiter:   rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		opts:      o,
	}
	for _, ep := range c.endpoints {
		c.breakers[ep] = &breaker{}
	}
	return c
}

// Endpoints returns the deduplicated endpoint list.
func (c *HTTPClient) Endpoints() []string { return c.endpoints }

func (c *HTTPClient) acquire(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// discard drains body so the transport can reuse the connection.
func discard(body io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// call sends one request to ep. Only a nil error means out was filled.
func (c *HTTPClient) call(ctx context.Context, ep, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, ep+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = discard(resp.Body) }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: ep, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s%s: %w", ep, path, err)
	}
	return nil
}

// doJSON tries each endpoint in turn until one answers. A 4xx stops the
// walk, since every node would give the same answer.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if len(c.endpoints) == 0 {
		return errors.New("no endpoints configured")
	}
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
	}

	var errs []error
	for _, ep := range c.endpoints {
		b := c.breakers[ep]
		if !b.allow(time.Now()) {
			continue
		}
		if err := c.acquire(ctx); err != nil {
			return err
		}

		err := c.call(ctx, ep, method, path, body, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
		b.record(err, time.Now(), c.opts.BreakerFailures, c.opts.BreakerCooldown)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("all endpoints unavailable: breakers open")
	}
	return errors.Join(errs...)
}
