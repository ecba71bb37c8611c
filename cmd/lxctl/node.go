package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) tipCmd() *cobra.Command {
	var (
		endpoints []string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tip --endpoint=http://node:3000",
		Short: "print the chain tip reported by the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := rpc.OptsFromEnv()
			if len(endpoints) > 0 {
				opts.Endpoints = endpoints
			}
			if len(opts.Endpoints) == 0 {
				return errors.New("no RPC endpoints, set RPC_ENDPOINTS or --endpoint")
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			tip, err := rpc.NewHTTP(opts).Tip(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tip)
		},
	}
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "node RPC endpoint, repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	return cmd
}

func (c *cli) pairsCmd() *cobra.Command {
	var (
		limit   int
		members bool
	)
	cmd := &cobra.Command{
		Use:   "pairs [pattern] --members",
		Short: "list the sets stored in Redis, optionally with their pools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			rc, err := redis.NewClient(ctx, c.logger)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			store := crdt.NewRedisStore(rc, c.logger)

			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			sets, err := store.Sets(ctx, pattern, limit)
			if err != nil {
				return fmt.Errorf("list sets: %w", err)
			}
			slices.Sort(sets)

			out := cmd.OutOrStdout()
			for _, set := range sets {
				if !members {
					if _, err := fmt.Fprintln(out, set); err != nil {
						return err
					}
					continue
				}
				raw, err := store.Members(ctx, set)
				if err != nil {
					return fmt.Errorf("members of %s: %w", set, err)
				}
				pools := make([]liquidity.PoolValue, 0, len(raw))
				for _, m := range raw {
					v, err := liquidity.ParsePoolValue(m)
					if err != nil {
						c.logger.Warn("Skipping malformed member", zap.String("set", set), zap.Error(err))
						continue
					}
					pools = append(pools, v)
				}
				if err := writeJSON(out, map[string]interface{}{"set": set, "pools": pools}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many sets, 0 for all")
	cmd.Flags().BoolVar(&members, "members", false, "print the pools of every set")
	return cmd
}
