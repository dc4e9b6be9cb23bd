package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"pnodeatlas/config"
	"pnodeatlas/models"
	"pnodeatlas/services"
	"pnodeatlas/utils"
)

// Handler wires the pipeline read API into HTTP.
type Handler struct {
	Cfg      *config.Config
	Pipeline *services.Pipeline
	Geo      *utils.GeoResolver
	History  *services.History
	RPC      *services.ClusterClient

	log     zerolog.Logger
	started time.Time
}

func NewHandler(cfg *config.Config, pipeline *services.Pipeline, geo *utils.GeoResolver, history *services.History, rpc *services.ClusterClient, logger zerolog.Logger) *Handler {
	return &Handler{
		Cfg:      cfg,
		Pipeline: pipeline,
		Geo:      geo,
		History:  history,
		RPC:      rpc,
		log:      logger.With().Str("component", "http").Logger(),
		started:  time.Now(),
	}
}

// GetPNodes returns the enriched node set and network stats.
func (h *Handler) GetPNodes(c echo.Context) error {
	nodes, stats, err := h.Pipeline.FetchAllPNodes(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("pnodes request failed")
		return c.JSON(http.StatusInternalServerError, models.Err(err.Error()))
	}

	// The pipeline promises no output order; sort here so clients see a
	// stable listing.
	sorted := make([]models.EnrichedNode, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Pubkey < sorted[j].Pubkey
	})

	return c.JSON(http.StatusOK, models.OK(models.PNodesResult{
		Nodes:       sorted,
		Stats:       stats,
		LastUpdated: time.Now().UnixMilli(),
	}))
}

// GetStats returns network-wide and per-region statistics.
func (h *Handler) GetStats(c echo.Context) error {
	nodes, stats, err := h.Pipeline.FetchAllPNodes(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("stats request failed")
		return c.JSON(http.StatusInternalServerError, models.Err(err.Error()))
	}

	regions := services.CalculateRegionStats(nodes)

	top := regions
	if len(top) > 10 {
		top = top[:10]
	}

	return c.JSON(http.StatusOK, models.OK(models.StatsResult{
		NetworkStats: stats,
		RegionStats:  regions,
		TopCountries: top,
		LastUpdated:  time.Now().UnixMilli(),
	}))
}

// GetGeo resolves a single IP address, the backing of the scan-by-IP feature.
func (h *Handler) GetGeo(c echo.Context) error {
	ip := c.QueryParam("ip")
	if ip == "" {
		return c.JSON(http.StatusBadRequest, models.Err("IP address is required"))
	}

	location := h.Geo.Resolve(c.Request().Context(), ip)
	if location == nil {
		return c.JSON(http.StatusNotFound, models.Err("Could not determine location for IP"))
	}

	return c.JSON(http.StatusOK, models.OK(location))
}

// GetHistory returns recent network stats samples.
func (h *Handler) GetHistory(c echo.Context) error {
	hours := 24
	if s := c.QueryParam("hours"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			hours = n
		}
	}

	return c.JSON(http.StatusOK, models.OK(h.History.GetHistory(hours)))
}

// GetHealth reports process liveness plus a best-effort upstream probe.
func (h *Handler) GetHealth(c echo.Context) error {
	payload := map[string]any{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"endpoint": h.Cfg.RPC.Endpoint,
	}

	if h.RPC != nil {
		if version, err := h.RPC.GetVersion(c.Request().Context()); err == nil {
			payload["upstreamVersion"] = version.SolanaCore
		} else {
			payload["upstreamError"] = err.Error()
		}
	}

	return c.JSON(http.StatusOK, models.OK(payload))
}
