package rpc

import (
	"context"
	"net/http"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

type utxosRequest struct {
	Refs []ledger.OutputRef `json:"refs"`
}

type utxoEntry struct {
	Ref    ledger.OutputRef `json:"ref"`
	Output ledger.Output    `json:"output"`
}

type utxosResponse struct {
	Utxos []utxoEntry `json:"utxos"`
}

// UtxosByRefs looks up outputs by reference, spent or not. Unknown refs are
// absent from the result.
func (c *HTTPClient) UtxosByRefs(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	out := make(map[ledger.OutputRef]ledger.Output, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	var resp utxosResponse
	if err := c.doJSON(ctx, http.MethodPost, utxosByRefsPath, utxosRequest{Refs: refs}, &resp); err != nil {
		return nil, err
	}
	for _, u := range resp.Utxos {
		out[u.Ref] = u.Output
	}
	return out, nil
}
