package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/plutus"
	"github.com/spf13/cobra"
)

type datumView struct {
	Protocol string   `json:"protocol"`
	AssetA   string   `json:"asset_a"`
	AssetB   string   `json:"asset_b"`
	Key      string   `json:"key,omitempty"`
	Fee      *float64 `json:"fee,omitempty"`
	PoolID   *string  `json:"pool_id,omitempty"`
}

func newDatumView(pd liquidity.PoolDatum) datumView {
	v := datumView{
		Protocol: pd.Protocol.String(),
		AssetA:   pd.Pair.A.String(),
		AssetB:   pd.Pair.B.String(),
		PoolID:   pd.PoolID,
	}
	// degenerate pairs have no key but are still worth printing
	if key, ok := pd.Pair.Key(); ok {
		v.Key = key
	}
	if pd.Fee != nil && pd.Fee.Den != 0 {
		f := pd.Fee.Float()
		v.Fee = &f
	}
	return v
}

var protocols = []liquidity.Protocol{
	liquidity.ProtocolMinswap,
	liquidity.ProtocolSundaeSwap,
	liquidity.ProtocolWingRiders,
	liquidity.ProtocolMuesliSwap,
}

func parseProtocol(name string) (liquidity.Protocol, error) {
	for _, p := range protocols {
		if strings.EqualFold(p.String(), name) {
			return p, nil
		}
	}
	return liquidity.ProtocolUnknown, fmt.Errorf("unknown protocol %q", name)
}

func (c *cli) decodeDatumCmd() *cobra.Command {
	var protocol string
	cmd := &cobra.Command{
		Use:   "decode-datum <hex> --protocol=minswap",
		Short: "decode a CBOR plutus datum and print the pool it describes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := plutus.DecodeHex(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("decode datum: %w", err)
			}

			var (
				pd liquidity.PoolDatum
				ok bool
			)
			if protocol == "" {
				pd, ok = liquidity.DecodePoolDatum(d)
			} else {
				p, err := parseProtocol(protocol)
				if err != nil {
					return err
				}
				pd, ok = liquidity.DecodeAs(p, d)
			}
			if !ok {
				return errors.New("datum does not match a known pool layout")
			}
			return writeJSON(cmd.OutOrStdout(), newDatumView(pd))
		},
	}
	cmd.Flags().StringVar(&protocol, "protocol", "", "only try one layout: minswap, sundaeswap, wingriders or muesliswap")
	return cmd
}
