package models

import "time"

// Node status values derived during enrichment.
const (
	StatusOnline  = "online"
	StatusSyncing = "syncing"
	StatusOffline = "offline"
)

// ClusterNode is one entry of the gossip roster as returned by the
// getClusterNodes RPC. Field names follow the upstream JSON exactly.
// Optional addresses are empty strings when the node does not advertise them.
type ClusterNode struct {
	Pubkey          string `json:"pubkey"`
	Gossip          string `json:"gossip"`
	RPC             string `json:"rpc"`
	TPU             string `json:"tpu"`
	TPUForwards     string `json:"tpuForwards,omitempty"`
	TPUVote         string `json:"tpuVote,omitempty"`
	TPUQuic         string `json:"tpuQuic,omitempty"`
	TPUForwardsQuic string `json:"tpuForwardsQuic,omitempty"`
	ServeRepair     string `json:"serveRepair,omitempty"`
	Version         string `json:"version"`
	FeatureSet      int64  `json:"featureSet"`
	ShredVersion    int    `json:"shredVersion"`
}

// EnrichedNode is a ClusterNode augmented with parsed address data, a derived
// liveness status and (when resolvable) geolocation. Instances are built once
// per pipeline run and treated as immutable snapshots afterwards.
type EnrichedNode struct {
	ClusterNode

	ID        string       `json:"id"`
	IPAddress string       `json:"ipAddress"`
	Port      int          `json:"port"`
	Status    string       `json:"status"`
	Location  *GeoLocation `json:"location,omitempty"`
	LastSeen  time.Time    `json:"lastSeen"`

	// IsRegistered is always true for roster entries and IsPublic mirrors the
	// presence of an RPC address. Both are placeholders for richer upstream
	// data (on-chain registration, telemetry) the RPC does not provide yet.
	IsRegistered bool `json:"isRegistered"`
	IsPublic     bool `json:"isPublic"`
}

// GeoLocation is the resolved geography for an IP address.
type GeoLocation struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
}
