package metrics

import "github.com/emifrog/speechtotalk/internal/models"

// UpdateCacheMetrics pushes a cache stats snapshot into the gauges.
// Called after every stats computation and optimization pass.
func UpdateCacheMetrics(stats models.CacheStats) {
	CacheEntriesTotal.Set(float64(stats.TotalEntries))
	CacheSizeBytes.WithLabelValues("raw").Set(float64(stats.RawSizeBytes))
	CacheSizeBytes.WithLabelValues("compressed").Set(float64(stats.CompressedBytes))
}
