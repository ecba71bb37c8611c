package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type networkInfo struct {
	NetworkMagic uint32 `json:"network_magic"`
}

// NetworkMagic asks a single endpoint which network it serves.
func NetworkMagic(ctx context.Context, endpoint string) (uint32, error) {
	client := NewHTTP(Opts{Endpoints: []string{endpoint}, Timeout: 5 * time.Second})
	var info networkInfo
	if err := client.doJSON(ctx, http.MethodPost, networkPath, map[string]any{}, &info); err != nil {
		return 0, fmt.Errorf("failed to fetch network from %s: %w", endpoint, err)
	}
	if info.NetworkMagic == 0 {
		return 0, fmt.Errorf("invalid network magic (0) returned from %s", endpoint)
	}
	return info.NetworkMagic, nil
}

// ValidateEndpoints queries every endpoint in parallel and checks they agree
// on the network. Individual failures are tolerated as long as one succeeds.
func ValidateEndpoints(ctx context.Context, endpoints []string, logger *zap.Logger) (uint32, error) {
	if len(endpoints) == 0 {
		return 0, fmt.Errorf("no RPC endpoints provided")
	}

	type result struct {
		endpoint string
		magic    uint32
		err      error
	}
	results := make(chan result, len(endpoints))
	for _, endpoint := range endpoints {
		go func() {
			timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			magic, err := NetworkMagic(timeoutCtx, endpoint)
			results <- result{endpoint: endpoint, magic: magic, err: err}
		}()
	}

	var (
		expected uint32
		ok       int
		errs     []error
	)
	for range endpoints {
		res := <-results
		if res.err != nil {
			logger.Warn("RPC endpoint failed during network validation",
				zap.String("endpoint", res.endpoint),
				zap.Error(res.err))
			errs = append(errs, res.err)
			continue
		}
		if ok > 0 && res.magic != expected {
			return 0, fmt.Errorf("network mismatch: endpoint %s serves %d, another endpoint serves %d",
				res.endpoint, res.magic, expected)
		}
		expected = res.magic
		ok++
	}
	if ok == 0 {
		return 0, fmt.Errorf("all RPC endpoints failed: %v", errs)
	}

	logger.Info("RPC network validated",
		zap.Uint32("network_magic", expected),
		zap.Int("successful_endpoints", ok),
		zap.Int("failed_endpoints", len(errs)))
	return expected, nil
}
