package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pnodeatlas/models"
	"pnodeatlas/utils"
)

// EnrichConcurrency bounds simultaneous outbound geo lookups, respecting the
// geo service's informal rate limits.
const EnrichConcurrency = 5

const shortIDLen = 8

// GeoLookup is the part of the geo resolver the enricher needs.
type GeoLookup interface {
	Resolve(ctx context.Context, ip string) *models.GeoLocation
}

// Enricher turns raw roster entries into display-ready enriched nodes.
type Enricher struct {
	geo GeoLookup
	log zerolog.Logger
}

func NewEnricher(geo GeoLookup, logger zerolog.Logger) *Enricher {
	return &Enricher{
		geo: geo,
		log: logger.With().Str("component", "enrich").Logger(),
	}
}

// Enrich processes nodes concurrently and returns the enriched set. A node
// whose geo lookup fails keeps a nil location; it is never excluded from the
// result for that. Output order is unspecified.
func (e *Enricher) Enrich(ctx context.Context, nodes []models.ClusterNode) []models.EnrichedNode {
	enriched := utils.RunConcurrent(nodes, EnrichConcurrency, func(node models.ClusterNode) (models.EnrichedNode, error) {
		return e.enrichOne(ctx, node), nil
	})

	if len(enriched) < len(nodes) {
		e.log.Warn().
			Int("input", len(nodes)).
			Int("output", len(enriched)).
			Msg("some nodes dropped during enrichment")
	}
	return enriched
}

func (e *Enricher) enrichOne(ctx context.Context, node models.ClusterNode) models.EnrichedNode {
	ip, port := parseGossipAddress(node.Gossip)

	// Geography is best effort: a node without resolvable location stays in
	// the node set, it is only absent from geography-based displays.
	location := e.geo.Resolve(ctx, ip)

	return models.EnrichedNode{
		ClusterNode: node,
		ID:          shortID(node.Pubkey),
		IPAddress:   ip,
		Port:        port,
		Status:      classifyStatus(node),
		Location:    location,
		LastSeen:    time.Now(),
		// Everything the roster returns is the registered set; richer
		// registration data is not available from the RPC yet.
		IsRegistered: true,
		IsPublic:     node.RPC != "",
	}
}

// classifyStatus derives liveness from advertised capability, not an actual
// reachability probe: an advertised RPC address counts as online, a gossip
// address alone as syncing, neither as offline.
func classifyStatus(node models.ClusterNode) string {
	switch {
	case node.RPC != "":
		return models.StatusOnline
	case node.Gossip != "":
		return models.StatusSyncing
	default:
		return models.StatusOffline
	}
}

// parseGossipAddress splits a host:port gossip address. Malformed or absent
// input yields the safe default 0.0.0.0:0 rather than an error.
func parseGossipAddress(gossip string) (string, int) {
	if gossip == "" {
		return "0.0.0.0", 0
	}

	host, portStr, found := strings.Cut(gossip, ":")
	if host == "" {
		return "0.0.0.0", 0
	}
	if !found {
		return host, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 {
		port = 0
	}
	return host, port
}

func shortID(pubkey string) string {
	if len(pubkey) <= shortIDLen {
		return pubkey
	}
	return pubkey[:shortIDLen]
}
