package models

import "time"

// APIResponse is the uniform envelope every HTTP endpoint returns.
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// OK wraps data in a success envelope.
func OK(data any) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Err wraps an error message in a failure envelope.
func Err(msg string) APIResponse {
	return APIResponse{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UnixMilli(),
	}
}

// PNodesResult is the payload of /api/pnodes.
type PNodesResult struct {
	Nodes       []EnrichedNode `json:"nodes"`
	Stats       NetworkStats   `json:"stats"`
	LastUpdated int64          `json:"lastUpdated"`
}

// StatsResult is the payload of /api/stats.
type StatsResult struct {
	NetworkStats NetworkStats  `json:"networkStats"`
	RegionStats  []RegionStats `json:"regionStats"`
	TopCountries []RegionStats `json:"topCountries"`
	LastUpdated  int64         `json:"lastUpdated"`
}
