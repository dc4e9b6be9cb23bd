package services

import (
	"math"
	"sort"
	"time"

	"pnodeatlas/models"
)

// CalculateNetworkStats reduces enriched nodes to network-wide status counts.
// Pure function, no I/O.
func CalculateNetworkStats(nodes []models.EnrichedNode) models.NetworkStats {
	stats := models.NetworkStats{
		TotalNodes: len(nodes),
		Timestamp:  time.Now(),
	}

	for _, node := range nodes {
		switch node.Status {
		case models.StatusOnline:
			stats.OnlineNodes++
		case models.StatusSyncing:
			stats.SyncingNodes++
		case models.StatusOffline:
			stats.OfflineNodes++
		}
	}

	// NodesReporting stays zero until the upstream RPC provides telemetry.
	return stats
}

// CalculateRegionStats groups nodes by country and reports per-region counts
// plus a health score, sorted by node count descending. Nodes without a
// resolved location land in the "Unknown" group.
func CalculateRegionStats(nodes []models.EnrichedNode) []models.RegionStats {
	groups := make(map[string][]models.EnrichedNode)
	for _, node := range nodes {
		country := "Unknown"
		if node.Location != nil && node.Location.Country != "" {
			country = node.Location.Country
		}
		groups[country] = append(groups[country], node)
	}

	regions := make([]models.RegionStats, 0, len(groups))
	for country, members := range groups {
		region := models.RegionStats{
			Country:     country,
			CountryCode: "XX",
			TotalNodes:  len(members),
		}
		if members[0].Location != nil && members[0].Location.CountryCode != "" {
			region.CountryCode = members[0].Location.CountryCode
		}

		for _, node := range members {
			switch node.Status {
			case models.StatusOnline:
				region.OnlineNodes++
			case models.StatusSyncing:
				region.SyncingNodes++
			case models.StatusOffline:
				region.OfflineNodes++
			}
		}

		if region.TotalNodes > 0 {
			region.HealthScore = int(math.Round(100 * float64(region.OnlineNodes) / float64(region.TotalNodes)))
		}

		regions = append(regions, region)
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].TotalNodes != regions[j].TotalNodes {
			return regions[i].TotalNodes > regions[j].TotalNodes
		}
		return regions[i].Country < regions[j].Country
	})

	return regions
}
