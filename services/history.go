package services

import (
	"sync"
	"time"

	"pnodeatlas/models"
)

// maxHistoryPoints bounds the in-cache history ring. At one refresh per 30s
// this covers roughly two hours, far beyond the 5 minute entry TTL.
const maxHistoryPoints = 240

// History keeps a short rolling record of network stats snapshots in the
// cache. It is intentionally ephemeral: real time-series storage is out of
// scope, this only feeds the dashboard's recent-activity sparkline.
type History struct {
	mu    sync.Mutex
	cache *Cache
}

func NewHistory(cache *Cache) *History {
	return &History{cache: cache}
}

// Record appends one sample derived from stats.
func (h *History) Record(stats models.NetworkStats) {
	point := models.HistoryPoint{
		Timestamp:   stats.Timestamp,
		TotalNodes:  stats.TotalNodes,
		OnlineNodes: stats.OnlineNodes,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	points := h.snapshot()
	points = append(points, point)
	if len(points) > maxHistoryPoints {
		points = points[len(points)-maxHistoryPoints:]
	}
	h.cache.Set(KeyHistory, points, HistoryTTL)
}

// GetHistory returns the recorded points no older than the given number of
// hours, oldest first.
func (h *History) GetHistory(hours int) []models.HistoryPoint {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	h.mu.Lock()
	points := h.snapshot()
	h.mu.Unlock()

	result := make([]models.HistoryPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			result = append(result, p)
		}
	}
	return result
}

// snapshot reads the current ring from the cache. The whole ring shares one
// TTL entry, so a quiet period simply expires the history wholesale.
func (h *History) snapshot() []models.HistoryPoint {
	val, ok := h.cache.Get(KeyHistory)
	if !ok {
		return nil
	}
	points, ok := val.([]models.HistoryPoint)
	if !ok {
		return nil
	}
	return points
}
