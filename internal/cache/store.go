// Package cache implements the offline-aware translation cache: a versioned,
// size-bounded collection of translation records persisted as a single
// compressed JSON blob in a key-value store. The cache is a performance
// optimization, never a correctness dependency: every persistence failure is
// logged and swallowed, and a corrupt blob is replaced by a fresh cache.
package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emifrog/speechtotalk/internal/compress"
	"github.com/emifrog/speechtotalk/internal/metrics"
	"github.com/emifrog/speechtotalk/internal/models"
)

const (
	// StorageKey is the single versioned key the whole cache lives under.
	StorageKey = "translation_cache_v2"

	// cleanupInterval is how often a load or save triggers maintenance.
	cleanupInterval = 24 * time.Hour
)

// BlobStore is the persistence substrate: an opaque string per key.
// Implemented by database.KVStore in production and by a map in tests.
type BlobStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Store is the translation cache store. Safe for concurrent use.
type Store struct {
	blob BlobStore
	comp *compress.Compressor
	now  func() time.Time

	mu     sync.Mutex
	cache  *models.Cache
	loaded bool

	pending    sync.WaitGroup // in-flight fire-and-forget writes
	optimizing int32          // guards the background optimization pass
}

// NewStore builds a store over the given blob store. now is the injectable
// clock; pass time.Now in production.
func NewStore(blob BlobStore, comp *compress.Compressor, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{blob: blob, comp: comp, now: now}
}

// Load reads the persisted cache, decompressing every entry. A missing or
// unreadable blob yields a fresh empty cache. When the last cleanup is older
// than the cleanup interval, an eviction pass runs before returning.
func (s *Store) Load() *models.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	snapshot := *s.cache
	snapshot.Entries = append([]models.CacheEntry(nil), s.cache.Entries...)
	return &snapshot
}

// ensureLoadedLocked lazily loads the cache from the blob store.
func (s *Store) ensureLoadedLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.cache = s.readBlob()

	if s.now().Sub(s.cache.LastCleanupAt) > cleanupInterval {
		s.cleanupLocked()
		s.persistLocked()
	}
	metrics.CacheEntriesTotal.Set(float64(len(s.cache.Entries)))
}

// readBlob parses the persisted blob. Every failure mode falls back to a
// fresh cache: the cache must never make translation worse than no cache.
func (s *Store) readBlob() *models.Cache {
	raw, ok, err := s.blob.Get(StorageKey)
	if err != nil {
		log.Printf("[CACHE] read failed, starting fresh: %v", err)
		return models.NewCache()
	}
	if !ok {
		return models.NewCache()
	}

	var c models.Cache
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Printf("[CACHE] corrupt blob, starting fresh: %v", err)
		return models.NewCache()
	}

	migrate(&c)

	// Decompress every text field; a single bad entry drops only itself.
	entries := c.Entries[:0]
	for _, e := range c.Entries {
		src, err := s.comp.Decompress(e.SourceText)
		if err != nil {
			log.Printf("[CACHE] dropping entry with corrupt source text: %v", err)
			continue
		}
		dst, err := s.comp.Decompress(e.TranslatedText)
		if err != nil {
			log.Printf("[CACHE] dropping entry with corrupt translation: %v", err)
			continue
		}
		e.SourceText, e.TranslatedText = src, dst
		entries = append(entries, e)
	}
	c.Entries = entries
	return &c
}

// migrate upgrades older schema versions in place.
func migrate(c *models.Cache) {
	if c.Capacity == 0 {
		c.Capacity = models.DefaultCacheCapacity
	}
	c.Capacity = models.ClampCapacity(c.Capacity)

	if c.SchemaVersion < models.CacheSchemaVersion {
		// v1 blobs predate the use counter; treat every entry as used once.
		for i := range c.Entries {
			if c.Entries[i].UseCount < 1 {
				c.Entries[i].UseCount = 1
			}
		}
		c.SchemaVersion = models.CacheSchemaVersion
	}
}

// Lookup returns the exact cached translation for the key triple. On a hit
// the usage counters are bumped and persisted without blocking the caller.
func (s *Store) Lookup(text, sourceLang, targetLang string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	for i := range s.cache.Entries {
		e := &s.cache.Entries[i]
		if e.SourceText == text && e.SourceLang == sourceLang && e.TargetLang == targetLang {
			e.UseCount++
			e.LastUsedAt = s.now()
			s.persistAsyncLocked()
			metrics.TranslationCacheHits.Inc()
			return e.TranslatedText, true
		}
	}
	metrics.TranslationCacheMisses.Inc()
	return "", false
}

// Upsert inserts or updates the entry for the key triple. An existing entry
// keeps its identity: use count is bumped, the timestamp refreshed, and the
// priority flag is sticky (once priority, always priority). Exceeding the
// capacity triggers a synchronous eviction pass.
func (s *Store) Upsert(text, translation, sourceLang, targetLang string, isPriority bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	for i := range s.cache.Entries {
		e := &s.cache.Entries[i]
		if e.SourceText == text && e.SourceLang == sourceLang && e.TargetLang == targetLang {
			e.TranslatedText = translation
			e.UseCount++
			e.LastUsedAt = s.now()
			e.IsPriority = e.IsPriority || isPriority
			s.persistLocked()
			return
		}
	}

	s.cache.Entries = append(s.cache.Entries, models.CacheEntry{
		SourceText:     text,
		TranslatedText: translation,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		LastUsedAt:     s.now(),
		UseCount:       1,
		IsPriority:     isPriority,
	})

	if len(s.cache.Entries) > s.cache.Capacity {
		s.cleanupLocked()
	}
	metrics.CacheEntriesTotal.Set(float64(len(s.cache.Entries)))
	s.persistLocked()
}

// SetCapacity clamps n to the allowed range and evicts immediately if the
// cache is over the new ceiling. Returns the effective capacity.
func (s *Store) SetCapacity(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	s.cache.Capacity = models.ClampCapacity(n)
	if len(s.cache.Entries) > s.cache.Capacity {
		s.cleanupLocked()
	}
	s.persistLocked()
	return s.cache.Capacity
}

// Clear resets the cache to empty, preserving capacity and schema version.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	s.cache.Entries = []models.CacheEntry{}
	s.cache.LastCleanupAt = s.now()
	metrics.CacheEntriesTotal.Set(0)
	s.persistLocked()
}

// Entries returns a snapshot of all entries, for the similarity matcher.
func (s *Store) Entries() []models.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	return append([]models.CacheEntry(nil), s.cache.Entries...)
}

// Stats computes an observability snapshot. Sizes come from serializing the
// aggregate before and after compression.
func (s *Store) Stats() models.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	stats := models.CacheStats{
		TotalEntries:  len(s.cache.Entries),
		LanguageStats: make(map[string]int),
		LastCleanupAt: s.cache.LastCleanupAt,
	}

	for _, e := range s.cache.Entries {
		stats.LanguageStats[e.SourceLang+"-"+e.TargetLang]++
		if e.IsPriority {
			stats.PriorityCount++
		}
	}

	raw, compressed := s.encodeLocked()
	stats.RawSizeBytes = len(raw)
	stats.CompressedBytes = len(compressed)
	if stats.RawSizeBytes > 0 {
		stats.CompressionRatio = float64(stats.CompressedBytes) / float64(stats.RawSizeBytes)
	}

	metrics.UpdateCacheMetrics(stats)
	return stats
}

// Optimize recompresses and re-evicts the cache, reporting bytes saved.
// Exposed to the UI as "force storage optimization" and run periodically by
// the background worker.
func (s *Store) Optimize() models.OptimizationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	s.cleanupLocked()

	raw, compressed := s.encodeLocked()
	if err := s.blob.Set(StorageKey, compressed); err != nil {
		log.Printf("[CACHE] optimization write failed: %v", err)
		return models.OptimizationResult{Success: false}
	}

	result := models.OptimizationResult{
		Success:    true,
		SavedBytes: len(raw) - len(compressed),
	}
	if len(raw) > 0 {
		result.CompressionRatio = float64(len(compressed)) / float64(len(raw))
	}
	return result
}

// Flush waits for in-flight fire-and-forget writes. Called at shutdown and
// from tests.
func (s *Store) Flush() {
	s.pending.Wait()
}

// cleanupLocked runs the eviction policy and stamps the cleanup time.
func (s *Store) cleanupLocked() {
	before := len(s.cache.Entries)
	s.cache.Entries = Evict(s.cache.Entries, s.cache.Capacity, s.now())
	s.cache.LastCleanupAt = s.now()

	if dropped := before - len(s.cache.Entries); dropped > 0 {
		metrics.CacheEvictedTotal.Add(float64(dropped))
		log.Printf("[CACHE] eviction dropped %d of %d entries", dropped, before)
	}
}

// encodeLocked serializes the cache twice: raw, and with long text fields
// compressed. The compressed form is what gets persisted.
func (s *Store) encodeLocked() (raw, compressed string) {
	rawBytes, err := json.Marshal(s.cache)
	if err != nil {
		log.Printf("[CACHE] serialization failed: %v", err)
		return "", ""
	}

	packed := *s.cache
	packed.Entries = make([]models.CacheEntry, len(s.cache.Entries))
	for i, e := range s.cache.Entries {
		e.SourceText = s.comp.Compress(e.SourceText)
		e.TranslatedText = s.comp.Compress(e.TranslatedText)
		packed.Entries[i] = e
	}

	packedBytes, err := json.Marshal(&packed)
	if err != nil {
		log.Printf("[CACHE] serialization failed: %v", err)
		return string(rawBytes), string(rawBytes)
	}
	return string(rawBytes), string(packedBytes)
}

// persistLocked writes the cache synchronously. Failures are logged and
// swallowed. When maintenance is overdue it also kicks off a background
// optimization pass.
func (s *Store) persistLocked() {
	_, compressed := s.encodeLocked()
	if err := s.blob.Set(StorageKey, compressed); err != nil {
		log.Printf("[CACHE] write failed (cache state kept in memory): %v", err)
	}
	s.maybeScheduleOptimizeLocked()
}

// persistAsyncLocked snapshots the serialized cache under the lock and
// writes it from a goroutine, so lookup hits never block on storage.
func (s *Store) persistAsyncLocked() {
	_, compressed := s.encodeLocked()
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.blob.Set(StorageKey, compressed); err != nil {
			log.Printf("[CACHE] async write failed: %v", err)
		}
	}()
	s.maybeScheduleOptimizeLocked()
}

// maybeScheduleOptimizeLocked starts a background optimization pass when the
// last cleanup is older than the cleanup interval. At most one pass runs at
// a time.
func (s *Store) maybeScheduleOptimizeLocked() {
	if s.now().Sub(s.cache.LastCleanupAt) <= cleanupInterval {
		return
	}
	if !atomic.CompareAndSwapInt32(&s.optimizing, 0, 1) {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer atomic.StoreInt32(&s.optimizing, 0)
		result := s.Optimize()
		log.Printf("[CACHE] background optimization: success=%v saved=%d bytes", result.Success, result.SavedBytes)
	}()
}

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return "cache(not loaded)"
	}
	return fmt.Sprintf("cache(%d entries, capacity %d)", len(s.cache.Entries), s.cache.Capacity)
}
