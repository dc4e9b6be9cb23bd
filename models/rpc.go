package models

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 Request
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// JSON-RPC 2.0 Response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a JSON-RPC response envelope.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// VersionInfo is the result of getVersion.
type VersionInfo struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet int64  `json:"feature-set"`
}

// EpochInfo is the result of getEpochInfo.
type EpochInfo struct {
	Epoch        int64 `json:"epoch"`
	SlotIndex    int64 `json:"slotIndex"`
	SlotsInEpoch int64 `json:"slotsInEpoch"`
}
