package liquidity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/go-jose/go-jose/v4/json"
)

// Config describes one reducer instance, normally one DEX family.
type Config struct {
	// PoolPrefix namespaces the emitted set keys.
	PoolPrefix string `json:"pool_prefix,omitempty"`
	// DexPrefix is written as the "dex" field of every value.
	DexPrefix string `json:"dex_prefix,omitempty"`
	// PoolCurrencySymbol is the policy of the token that marks pool outputs.
	PoolCurrencySymbol string `json:"pool_currency_symbol"`
}

func (c Config) Validate() error {
	if c.PoolCurrencySymbol == "" {
		return errors.New("pool_currency_symbol is required")
	}
	if _, err := ledger.ParsePolicyID(c.PoolCurrencySymbol); err != nil {
		return fmt.Errorf("pool_currency_symbol: %w", err)
	}
	return nil
}

// ConfigsFromEnv reads REDUCERS, a JSON array of Config, or failing that the
// single reducer variables POOL_PREFIX, DEX_PREFIX and POOL_CURRENCY_SYMBOL.
func ConfigsFromEnv() ([]Config, error) {
	if raw := strings.TrimSpace(utils.Env("REDUCERS", "")); raw != "" {
		var cfgs []Config
		if err := json.Unmarshal([]byte(raw), &cfgs); err != nil {
			return nil, fmt.Errorf("REDUCERS: %w", err)
		}
		if len(cfgs) == 0 {
			return nil, errors.New("REDUCERS: no reducers configured")
		}
		for i, c := range cfgs {
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("REDUCERS[%d]: %w", i, err)
			}
		}
		return cfgs, nil
	}

	cfg := Config{
		PoolPrefix:         utils.Env("POOL_PREFIX", ""),
		DexPrefix:          utils.Env("DEX_PREFIX", ""),
		PoolCurrencySymbol: strings.ToLower(utils.Env("POOL_CURRENCY_SYMBOL", "")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("POOL_CURRENCY_SYMBOL: %w", err)
	}
	return []Config{cfg}, nil
}

// Name identifies the reducer in logs and progress detail.
func (c Config) Name() string {
	switch {
	case c.PoolPrefix != "":
		return c.PoolPrefix
	case c.DexPrefix != "":
		return c.DexPrefix
	}
	return c.PoolCurrencySymbol
}
