package metrics

import (
	"time"

	"wallswitch/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current catalog statistics
type Stats struct {
	TotalImages    int
	TotalVideos    int
	TotalFavorites int
	TotalPrivacy   int
	TotalUnscored  int
	TotalHistory   int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CatalogResourcesTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
	CatalogResourcesTotal.WithLabelValues("video").Set(float64(stats.TotalVideos))
	CatalogFavoritesTotal.Set(float64(stats.TotalFavorites))
	CatalogPrivacyTotal.Set(float64(stats.TotalPrivacy))
	CatalogUnscoredTotal.Set(float64(stats.TotalUnscored))
	CatalogHistoryTotal.Set(float64(stats.TotalHistory))

	logging.Debug("Metrics collected: images=%d, videos=%d, favorites=%d, unscored=%d",
		stats.TotalImages, stats.TotalVideos, stats.TotalFavorites, stats.TotalUnscored)
}
