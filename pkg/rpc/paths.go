package rpc

const (
	networkPath       = "/v1/query/network"
	tipPath           = "/v1/query/tip"
	blockByHeightPath = "/v1/query/block-by-height"
	utxosByRefsPath   = "/v1/query/utxos"
)
