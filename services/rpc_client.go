package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pnodeatlas/config"
	"pnodeatlas/models"
)

// ClusterClient talks JSON-RPC 2.0 to the configured network endpoint.
type ClusterClient struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger
}

func NewClusterClient(cfg *config.Config, logger zerolog.Logger) *ClusterClient {
	maxRetries := cfg.RPC.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &ClusterClient{
		endpoint:   cfg.RPC.Endpoint,
		httpClient: &http.Client{Timeout: cfg.RPCTimeout()},
		maxRetries: maxRetries,
		log:        logger.With().Str("component", "rpc").Logger(),
	}
}

// Call issues one JSON-RPC request and returns the raw result. Transport
// failures, non-2xx statuses and error envelopes all surface as errors;
// envelope errors are returned as *models.RPCError.
func (c *ClusterClient) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	reqBody := models.RPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Retry transient server-side failures (5xx, 429) with backoff.
	var resp *http.Response
	delay := 200 * time.Millisecond

	for i := 0; i < c.maxRetries; i++ {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
		if reqErr != nil {
			return nil, fmt.Errorf("create request: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(httpReq)
		if err == nil {
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				err = fmt.Errorf("server error: %d", resp.StatusCode)
			} else {
				break
			}
		}

		if i < c.maxRetries-1 {
			c.log.Debug().Err(err).Str("method", method).Int("attempt", i+1).Msg("rpc call retry")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc request failed: http %d", resp.StatusCode)
	}

	var rpcResp models.RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetClusterNodes fetches the raw node roster. A failure here is fatal to a
// pipeline run, unlike geo lookups it is never swallowed.
func (c *ClusterClient) GetClusterNodes(ctx context.Context) ([]models.ClusterNode, error) {
	result, err := c.Call(ctx, "getClusterNodes", nil)
	if err != nil {
		return nil, err
	}

	var nodes []models.ClusterNode
	if err := json.Unmarshal(result, &nodes); err != nil {
		return nil, fmt.Errorf("unmarshal cluster nodes: %w", err)
	}
	return nodes, nil
}

// GetVersion calls getVersion.
func (c *ClusterClient) GetVersion(ctx context.Context) (*models.VersionInfo, error) {
	result, err := c.Call(ctx, "getVersion", nil)
	if err != nil {
		return nil, err
	}

	var version models.VersionInfo
	if err := json.Unmarshal(result, &version); err != nil {
		return nil, fmt.Errorf("unmarshal version: %w", err)
	}
	return &version, nil
}

// GetEpochInfo calls getEpochInfo.
func (c *ClusterClient) GetEpochInfo(ctx context.Context) (*models.EpochInfo, error) {
	result, err := c.Call(ctx, "getEpochInfo", nil)
	if err != nil {
		return nil, err
	}

	var epoch models.EpochInfo
	if err := json.Unmarshal(result, &epoch); err != nil {
		return nil, fmt.Errorf("unmarshal epoch info: %w", err)
	}
	return &epoch, nil
}

// GetSlotLeader calls getSlotLeader.
func (c *ClusterClient) GetSlotLeader(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, "getSlotLeader", nil)
	if err != nil {
		return "", err
	}

	var leader string
	if err := json.Unmarshal(result, &leader); err != nil {
		return "", fmt.Errorf("unmarshal slot leader: %w", err)
	}
	return leader, nil
}
