package models

import "time"

const (
	// CacheSchemaVersion is bumped whenever the persisted cache layout
	// changes in a way that requires migration on load.
	CacheSchemaVersion = 2

	// DefaultCacheCapacity is the soft ceiling on cached entries when the
	// user has not configured a limit.
	DefaultCacheCapacity = 500

	// MinCacheCapacity and MaxCacheCapacity bound SetCapacity.
	MinCacheCapacity = 10
	MaxCacheCapacity = 2000
)

// CacheEntry is one stored translation with its usage metadata.
// SourceText and TranslatedText may be held in compressed form on disk;
// the cache store always exposes them decompressed to callers.
type CacheEntry struct {
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	LastUsedAt     time.Time `json:"last_used_at"`
	UseCount       int       `json:"use_count"`
	IsPriority     bool      `json:"is_priority"` // emergency phrases survive eviction longer
}

// Key identifies an entry: exact match on raw text plus the language pair.
type CacheKey struct {
	SourceText string
	SourceLang string
	TargetLang string
}

// Key returns the lookup key for the entry.
func (e *CacheEntry) Key() CacheKey {
	return CacheKey{SourceText: e.SourceText, SourceLang: e.SourceLang, TargetLang: e.TargetLang}
}

// Cache is the persisted aggregate: every cached translation plus the
// bookkeeping needed for periodic cleanup and forward migration.
type Cache struct {
	Entries       []CacheEntry `json:"entries"`
	LastCleanupAt time.Time    `json:"last_cleanup_at"`
	SchemaVersion int          `json:"schema_version"`
	Capacity      int          `json:"capacity"`
}

// NewCache returns an empty cache with the default capacity.
func NewCache() *Cache {
	return &Cache{
		Entries:       []CacheEntry{},
		SchemaVersion: CacheSchemaVersion,
		Capacity:      DefaultCacheCapacity,
	}
}

// ClampCapacity clamps n to the allowed capacity range.
func ClampCapacity(n int) int {
	if n < MinCacheCapacity {
		return MinCacheCapacity
	}
	if n > MaxCacheCapacity {
		return MaxCacheCapacity
	}
	return n
}

// CacheStats is a read-only observability snapshot of the cache.
type CacheStats struct {
	TotalEntries     int            `json:"total_entries"`
	LanguageStats    map[string]int `json:"language_stats"` // "fr-en" -> count
	PriorityCount    int            `json:"emergency_phrase_count"`
	RawSizeBytes     int            `json:"cache_size_bytes"`
	CompressedBytes  int            `json:"compressed_size_bytes"`
	CompressionRatio float64        `json:"compression_ratio"`
	LastCleanupAt    time.Time      `json:"last_cleanup"`
}

// OptimizationResult reports the outcome of a storage-optimization pass.
type OptimizationResult struct {
	Success          bool    `json:"success"`
	CompressionRatio float64 `json:"compression_ratio"`
	SavedBytes       int     `json:"saved_bytes"`
}
