package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pnodeatlas/metrics"
	"pnodeatlas/models"
)

// RosterSource provides the raw node roster. Satisfied by *ClusterClient.
type RosterSource interface {
	GetClusterNodes(ctx context.Context) ([]models.ClusterNode, error)
}

// Pipeline is the single entry point for the enriched dataset: it checks the
// cache, fetches and enriches on a miss, and stores the fresh result.
type Pipeline struct {
	source   RosterSource
	enricher *Enricher
	cache    *Cache
	history  *History
	metrics  *metrics.Metrics
	log      zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewPipeline(source RosterSource, enricher *Enricher, cache *Cache, history *History, m *metrics.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:   source,
		enricher: enricher,
		cache:    cache,
		history:  history,
		metrics:  m,
		log:      logger.With().Str("component", "pipeline").Logger(),
		stopChan: make(chan struct{}),
	}
}

// FetchAllPNodes returns the enriched node set and its network stats. When
// both are cached the call does no I/O at all. Roster fetch failure is the
// only fatal failure point and propagates to the caller; everything else
// (missing geography, dropped nodes) is expected steady-state behavior.
//
// The returned values are shared snapshots; callers must not mutate them.
func (p *Pipeline) FetchAllPNodes(ctx context.Context) ([]models.EnrichedNode, models.NetworkStats, error) {
	cachedNodes, nodesOK := p.cache.Get(KeyNodes)
	cachedStats, statsOK := p.cache.Get(KeyStats)
	if nodesOK && statsOK {
		nodes, nodesTyped := cachedNodes.([]models.EnrichedNode)
		stats, statsTyped := cachedStats.(models.NetworkStats)
		if nodesTyped && statsTyped {
			p.metrics.CacheHits.Inc()
			return nodes, stats, nil
		}
	}
	p.metrics.CacheMisses.Inc()

	rawNodes, err := p.source.GetClusterNodes(ctx)
	if err != nil {
		p.metrics.PipelineFailures.Inc()
		p.log.Error().Err(err).Msg("roster fetch failed")
		return nil, models.NetworkStats{}, err
	}
	p.metrics.PipelineRuns.Inc()

	start := time.Now()
	nodes := p.enricher.Enrich(ctx, rawNodes)
	p.metrics.EnrichDuration.Observe(time.Since(start).Seconds())
	p.metrics.NodesEnriched.Set(float64(len(nodes)))

	stats := CalculateNetworkStats(nodes)

	// The two entries expire independently; both are recomputed together
	// whenever either is missing, so transient skew is acceptable.
	p.cache.Set(KeyNodes, nodes, NodesTTL)
	p.cache.Set(KeyStats, stats, StatsTTL)

	if p.history != nil {
		p.history.Record(stats)
	}

	p.log.Info().
		Int("total", stats.TotalNodes).
		Int("online", stats.OnlineNodes).
		Int("syncing", stats.SyncingNodes).
		Int("offline", stats.OfflineNodes).
		Dur("enrich", time.Since(start)).
		Msg("pipeline refreshed")

	return nodes, stats, nil
}

// StartRefresher keeps the cache warm on the given interval so interactive
// reads stay on the fast path. Upstream failures are logged and retried on
// the next tick.
func (p *Pipeline) StartRefresher(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, _, err := p.FetchAllPNodes(ctx); err != nil {
					p.log.Warn().Err(err).Msg("background refresh failed")
				}
				cancel()
			case <-p.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop terminates the background refresher.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}
