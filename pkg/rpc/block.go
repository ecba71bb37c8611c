package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

// ErrBlockNotReady means the node has not yet got a block at the requested height.
var ErrBlockNotReady = errors.New("block not ready")

// Tip is the node's current chain tip.
type Tip struct {
	Height uint64      `json:"height"`
	Slot   uint64      `json:"slot"`
	Hash   ledger.Hash `json:"hash"`
}

// Tip returns the chain tip.
func (c *HTTPClient) Tip(ctx context.Context) (Tip, error) {
	var tip Tip
	if err := c.doJSON(ctx, http.MethodPost, tipPath, map[string]any{}, &tip); err != nil {
		return Tip{}, fmt.Errorf("cannot probe tip: %w", err)
	}
	return tip, nil
}

// ChainHead returns the height of the chain tip.
func (c *HTTPClient) ChainHead(ctx context.Context) (uint64, error) {
	tip, err := c.Tip(ctx)
	if err != nil {
		return 0, err
	}
	if tip.Height == 0 {
		return 0, errors.New("cannot probe head: node reported height 0")
	}
	return tip.Height, nil
}

// BlockByHeight returns the block at height h with its transactions.
func (c *HTTPClient) BlockByHeight(ctx context.Context, h uint64) (ledger.Block, error) {
	var out ledger.Block
	err := c.doJSON(ctx, http.MethodPost, blockByHeightPath, map[string]any{"height": h}, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return ledger.Block{}, fmt.Errorf("%w: height %d", ErrBlockNotReady, h)
	}
	if err != nil {
		return ledger.Block{}, err
	}
	if out.Height != h {
		return ledger.Block{}, fmt.Errorf("%w: asked for height %d, node returned %d", ErrBlockNotReady, h, out.Height)
	}
	return out, nil
}
