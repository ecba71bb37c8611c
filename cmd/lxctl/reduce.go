package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/spf13/cobra"
)

// utxoEntry is one line of the --utxos file.
type utxoEntry struct {
	Ref    ledger.OutputRef `json:"ref"`
	Output ledger.Output    `json:"output"`
}

type reduceOpts struct {
	utxos          string
	currencySymbol string
	poolPrefix     string
	dexPrefix      string
	missing        string
	lookup         bool
	stats          bool
}

func (c *cli) reduceCmd() *cobra.Command {
	var o reduceOpts
	cmd := &cobra.Command{
		Use:   "reduce <block.json> --currency-symbol=<policy>",
		Short: "reduce one block with in-memory stores and print the set commands",
		Long: "Reads a block in the node's JSON form and prints one change feed event per command. " +
			"Outputs the block consumes are looked up in --utxos, then with --lookup on RPC_ENDPOINTS. " +
			"Without --currency-symbol the reducers come from REDUCERS or POOL_CURRENCY_SYMBOL.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReduce(cmd, args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.utxos, "utxos", "", "JSON array of {ref, output} known before the block")
	f.StringVar(&o.currencySymbol, "currency-symbol", "", "policy id of the pool marker token")
	f.StringVar(&o.poolPrefix, "pool-prefix", "", "set name prefix")
	f.StringVar(&o.dexPrefix, "dex-prefix", "", "dex label written into values")
	f.StringVar(&o.missing, "missing", "skip", "what to do with unresolved inputs: skip, warn or fail")
	f.BoolVar(&o.lookup, "lookup", false, "ask the node for outputs missing from --utxos")
	f.BoolVar(&o.stats, "stats", false, "print the reducer stats after the commands")
	return cmd
}

func (c *cli) reducerConfigs(o reduceOpts) ([]liquidity.Config, error) {
	if o.currencySymbol == "" {
		return liquidity.ConfigsFromEnv()
	}
	cfg := liquidity.Config{PoolPrefix: o.poolPrefix, DexPrefix: o.dexPrefix, PoolCurrencySymbol: o.currencySymbol}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return []liquidity.Config{cfg}, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *cli) runReduce(cmd *cobra.Command, path string, o reduceOpts) error {
	ctx := context.Background()

	var block ledger.Block
	if err := readJSONFile(path, &block); err != nil {
		return err
	}
	action, err := utxo.ParseMissingDataAction(o.missing)
	if err != nil {
		return err
	}
	cfgs, err := c.reducerConfigs(o)
	if err != nil {
		return err
	}

	store := utxo.NewMemoryStore()
	if o.utxos != "" {
		var entries []utxoEntry
		if err := readJSONFile(o.utxos, &entries); err != nil {
			return err
		}
		produced := make([]ledger.Produced, len(entries))
		for i, e := range entries {
			produced[i] = ledger.Produced{Ref: e.Ref, Output: e.Output}
		}
		if err := store.Put(ctx, produced); err != nil {
			return err
		}
	}
	var lookup utxo.Lookup
	if o.lookup {
		opts := rpc.OptsFromEnv()
		if len(opts.Endpoints) == 0 {
			return errors.New("--lookup needs RPC_ENDPOINTS")
		}
		lookup = rpc.NewHTTP(opts)
	}

	resolver := utxo.NewResolver(store, lookup, nil, utxo.ResolverConfig{Action: action}, c.logger)
	view, err := resolver.ForBlock(ctx, block)
	if err != nil {
		return err
	}

	batch := crdt.NewBatch()
	var stats liquidity.Stats
	for i, cfg := range cfgs {
		r, err := liquidity.NewReducer(cfg, c.logger)
		if err != nil {
			return err
		}
		st, err := r.ReduceBlock(ctx, block, view, batch)
		if err != nil {
			return err
		}
		if i == 0 {
			stats = st
		} else {
			stats.Added += st.Added
			stats.Removed += st.Removed
		}
	}

	out := cmd.OutOrStdout()
	for _, command := range batch.Commands() {
		ev := crdt.FeedEvent{Command: command, Set: command.Set(), Height: block.Height, Slot: block.Slot}
		if err := writeJSON(out, ev); err != nil {
			return err
		}
	}
	if o.stats {
		return writeJSON(out, map[string]interface{}{"height": block.Height, "stats": stats})
	}
	return nil
}
