// Package config gathers the reducer worker's environment into one validated
// value.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/robfig/cron/v3"
)

const (
	SinkRedis      = "redis"
	SinkClickHouse = "clickhouse"
	SinkLog        = "log"

	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"

	DefaultHeadScanCron = "*/10 * * * * *"
	DefaultMetricsAddr  = ":9090"
	DefaultPipelineID   = "liquidity"
)

type Config struct {
	PipelineID string
	Reducers   []liquidity.Config
	Missing    utxo.MissingDataAction
	Sinks      []string

	UtxoStore   string
	BadgerDir   string
	SpentTTL    time.Duration
	LookupChunk int

	HeadScanCron string
	StartHeight  uint64
	// MaxBlocksPerScan bounds how many reduce workflows one head scan starts.
	MaxBlocksPerScan int
	MetricsAddr      string
	QueryAddr        string
}

// HasSink reports whether name is among the configured sinks.
func (c Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// Load reads and validates the environment.
func Load() (Config, error) {
	cfg := Config{
		PipelineID:       utils.Env("PIPELINE_ID", DefaultPipelineID),
		Sinks:            utils.Dedup(utils.Lower(utils.EnvList("SINKS", []string{SinkRedis}))),
		UtxoStore:        strings.ToLower(utils.Env("UTXO_STORE", StoreRedis)),
		BadgerDir:        utils.Env("BADGER_DIR", ""),
		SpentTTL:         utils.EnvDuration("UTXO_SPENT_TTL", utxo.DefaultSpentTTL),
		LookupChunk:      utils.EnvInt("UTXO_LOOKUP_CHUNK", utxo.DefaultLookupChunk),
		HeadScanCron:     utils.Env("HEADSCAN_CRON", DefaultHeadScanCron),
		StartHeight:      utils.EnvUint64("START_HEIGHT", 0),
		MaxBlocksPerScan: utils.EnvInt("MAX_BLOCKS_PER_SCAN", 500),
		MetricsAddr:      utils.Env("METRICS_ADDR", DefaultMetricsAddr),
		QueryAddr:        utils.Env("QUERY_ADDR", ":8080"),
	}

	reducers, err := liquidity.ConfigsFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Reducers = reducers

	if cfg.Missing, err = utxo.ParseMissingDataAction(utils.Env("MISSING_DATA_POLICY", "skip")); err != nil {
		return Config{}, fmt.Errorf("MISSING_DATA_POLICY: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PipelineID == "" {
		return errors.New("PIPELINE_ID: must not be empty")
	}
	if len(c.Sinks) == 0 {
		return errors.New("SINKS: no sinks configured")
	}
	for _, s := range c.Sinks {
		switch s {
		case SinkRedis, SinkClickHouse, SinkLog:
		default:
			return fmt.Errorf("SINKS: unknown sink %q", s)
		}
	}
	if !c.HasSink(SinkRedis) && !c.HasSink(SinkClickHouse) {
		return errors.New("SINKS: progress needs the redis or clickhouse sink")
	}
	switch c.UtxoStore {
	case StoreMemory, StoreRedis:
	case StoreBadger:
		if c.BadgerDir == "" {
			return errors.New("BADGER_DIR: required when UTXO_STORE=badger")
		}
	default:
		return fmt.Errorf("UTXO_STORE: unknown store %q", c.UtxoStore)
	}
	if c.SpentTTL <= 0 {
		return fmt.Errorf("UTXO_SPENT_TTL: must be positive, got %s", c.SpentTTL)
	}
	if c.LookupChunk <= 0 {
		return fmt.Errorf("UTXO_LOOKUP_CHUNK: must be positive, got %d", c.LookupChunk)
	}
	if c.MaxBlocksPerScan <= 0 {
		return fmt.Errorf("MAX_BLOCKS_PER_SCAN: must be positive, got %d", c.MaxBlocksPerScan)
	}
	if _, err := CronParser().Parse(c.HeadScanCron); err != nil {
		return fmt.Errorf("HEADSCAN_CRON: %w", err)
	}
	return nil
}

// CronParser accepts the six field (seconds first) schedules Temporal takes.
func CronParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}
