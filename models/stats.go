package models

import "time"

// NetworkStats holds status counts over one enrichment pass.
type NetworkStats struct {
	TotalNodes   int `json:"totalNodes"`
	OnlineNodes  int `json:"onlineNodes"`
	SyncingNodes int `json:"syncingNodes"`
	OfflineNodes int `json:"offlineNodes"`

	// NodesReporting is reserved for live telemetry counts the upstream RPC
	// does not expose yet. Always zero.
	NodesReporting int `json:"nodesReporting"`

	Timestamp time.Time `json:"timestamp"`
}

// RegionStats holds per-country counts and a coarse health indicator.
type RegionStats struct {
	Country      string `json:"country"`
	CountryCode  string `json:"countryCode"`
	TotalNodes   int    `json:"totalNodes"`
	OnlineNodes  int    `json:"onlineNodes"`
	OfflineNodes int    `json:"offlineNodes"`
	SyncingNodes int    `json:"syncingNodes"`
	HealthScore  int    `json:"healthScore"` // 0-100, percentage of online nodes
}

// HistoryPoint is one sample of the rolling network history.
type HistoryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalNodes  int       `json:"totalNodes"`
	OnlineNodes int       `json:"onlineNodes"`
}
