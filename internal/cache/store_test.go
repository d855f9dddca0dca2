package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emifrog/speechtotalk/internal/compress"
	"github.com/emifrog/speechtotalk/internal/models"
)

// memBlob is an in-memory BlobStore for tests.
type memBlob struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
	sets    int
}

func newMemBlob() *memBlob {
	return &memBlob{data: make(map[string]string)}
}

func (m *memBlob) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBlob) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("disk full")
	}
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memBlob) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(blob *memBlob, at time.Time) *Store {
	return NewStore(blob, compress.New(compress.DefaultThreshold), fixedClock(at))
}

var testTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestLookupMissOnEmpty(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	if _, ok := s.Lookup("Bonjour", "fr", "en"); ok {
		t.Error("Expected miss on empty cache")
	}
}

func TestUpsertThenLookup(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	s.Upsert("Bonjour", "Hello", "fr", "en", false)

	got, ok := s.Lookup("Bonjour", "fr", "en")
	if !ok || got != "Hello" {
		t.Fatalf("Lookup = (%q, %v), want (Hello, true)", got, ok)
	}

	// Case sensitivity and language pair are part of the key.
	if _, ok := s.Lookup("bonjour", "fr", "en"); ok {
		t.Error("Lookup should be case sensitive on raw text")
	}
	if _, ok := s.Lookup("Bonjour", "fr", "es"); ok {
		t.Error("Lookup should respect the language pair")
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	s.Upsert("Bonjour", "Hello", "fr", "en", false)
	s.Upsert("Bonjour", "Hi", "fr", "en", true)

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one entry per key triple, got %d", len(entries))
	}
	e := entries[0]
	if e.TranslatedText != "Hi" {
		t.Errorf("Translation not updated: %q", e.TranslatedText)
	}
	if e.UseCount != 2 {
		t.Errorf("UseCount = %d, want 2", e.UseCount)
	}
	if !e.IsPriority {
		t.Error("Priority flag should be sticky once set")
	}

	// Priority must survive a later non-priority upsert too.
	s.Upsert("Bonjour", "Hi", "fr", "en", false)
	if !s.Entries()[0].IsPriority {
		t.Error("Priority flag lost on non-priority upsert")
	}
}

func TestLookupBumpsUsage(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	s.Upsert("Merci", "Thanks", "fr", "en", false)
	s.Lookup("Merci", "fr", "en")
	s.Lookup("Merci", "fr", "en")
	s.Flush()

	e := s.Entries()[0]
	if e.UseCount != 3 { // 1 from upsert + 2 lookups
		t.Errorf("UseCount = %d, want 3", e.UseCount)
	}
}

func TestPersistAndReload(t *testing.T) {
	blob := newMemBlob()

	s := newTestStore(blob, testTime)
	long := strings.Repeat("Restez calme, les secours arrivent. ", 10)
	s.Upsert("phrase longue", long, "fr", "en", true)
	s.Upsert("Merci", "Thanks", "fr", "en", false)
	s.Flush()

	// The persisted blob holds the long text compressed.
	raw, ok, _ := blob.Get(StorageKey)
	if !ok {
		t.Fatal("Nothing persisted")
	}
	var persisted models.Cache
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("Persisted blob is not valid JSON: %v", err)
	}
	foundCompressed := false
	for _, e := range persisted.Entries {
		if strings.HasPrefix(e.TranslatedText, "GZ:") {
			foundCompressed = true
		}
	}
	if !foundCompressed {
		t.Error("Expected the long translation to be stored compressed")
	}

	// A fresh store over the same blob sees decompressed entries.
	s2 := newTestStore(blob, testTime)
	got, ok := s2.Lookup("phrase longue", "fr", "en")
	if !ok || got != long {
		t.Errorf("Reload lost or corrupted the long translation")
	}
}

func TestLoadCorruptBlobFallsBack(t *testing.T) {
	blob := newMemBlob()
	blob.data[StorageKey] = "{not json"

	s := newTestStore(blob, testTime)
	c := s.Load()
	if len(c.Entries) != 0 {
		t.Errorf("Corrupt blob should yield an empty cache, got %d entries", len(c.Entries))
	}
	if c.Capacity != models.DefaultCacheCapacity {
		t.Errorf("Capacity = %d, want default", c.Capacity)
	}
}

func TestLoadRunsOverdueCleanup(t *testing.T) {
	blob := newMemBlob()

	// Persist a cache whose cleanup is overdue and holds one stale entry.
	stale := models.Cache{
		Entries: []models.CacheEntry{
			{SourceText: "vieux", TranslatedText: "old", SourceLang: "fr", TargetLang: "en",
				LastUsedAt: testTime.Add(-10 * 24 * time.Hour), UseCount: 1},
			{SourceText: "frais", TranslatedText: "fresh", SourceLang: "fr", TargetLang: "en",
				LastUsedAt: testTime.Add(-time.Hour), UseCount: 1},
		},
		LastCleanupAt: testTime.Add(-48 * time.Hour),
		SchemaVersion: models.CacheSchemaVersion,
		Capacity:      models.DefaultCacheCapacity,
	}
	raw, _ := json.Marshal(&stale)
	blob.data[StorageKey] = string(raw)

	s := newTestStore(blob, testTime)
	c := s.Load()
	if len(c.Entries) != 1 || c.Entries[0].SourceText != "frais" {
		t.Fatalf("Overdue load should evict the stale entry, got %+v", c.Entries)
	}
	if !c.LastCleanupAt.Equal(testTime) {
		t.Errorf("LastCleanupAt not refreshed: %v", c.LastCleanupAt)
	}
}

func TestSchemaMigration(t *testing.T) {
	blob := newMemBlob()

	// v1 blob: no use counts, no capacity.
	v1 := `{"entries":[{"source_text":"Bonjour","translated_text":"Hello","source_lang":"fr","target_lang":"en","last_used_at":"2026-08-30T11:00:00Z"}],"last_cleanup_at":"2026-08-30T11:00:00Z","schema_version":1,"capacity":0}`
	blob.data[StorageKey] = v1

	s := newTestStore(blob, testTime)
	c := s.Load()
	if c.SchemaVersion != models.CacheSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", c.SchemaVersion, models.CacheSchemaVersion)
	}
	if c.Capacity != models.DefaultCacheCapacity {
		t.Errorf("Capacity = %d, want default", c.Capacity)
	}
	if len(c.Entries) != 1 || c.Entries[0].UseCount != 1 {
		t.Errorf("v1 entries should get UseCount 1, got %+v", c.Entries)
	}
}

func TestCapacityEviction(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)
	s.SetCapacity(10)

	// Insert three entries with increasing use counts at minimum capacity.
	s.Upsert("un", "one", "fr", "en", false)
	s.Upsert("deux", "two", "fr", "en", false)
	s.Upsert("deux", "two", "fr", "en", false)
	s.Upsert("trois", "three", "fr", "en", false)
	for i := 0; i < 2; i++ {
		s.Upsert("trois", "three", "fr", "en", false)
	}

	// Fill up to the capacity of 10, then overflow.
	for _, w := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		s.Upsert(w, w, "fr", "en", false)
	}

	entries := s.Entries()
	if len(entries) > 10 {
		t.Fatalf("Capacity invariant violated: %d entries", len(entries))
	}

	has := func(text string) bool {
		for _, e := range entries {
			if e.SourceText == text {
				return true
			}
		}
		return false
	}
	if !has("deux") || !has("trois") {
		t.Error("Higher-use entries should survive capacity eviction")
	}
}

func TestSetCapacityClamps(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	if got := s.SetCapacity(5); got != models.MinCacheCapacity {
		t.Errorf("SetCapacity(5) = %d, want %d", got, models.MinCacheCapacity)
	}
	if got := s.SetCapacity(99999); got != models.MaxCacheCapacity {
		t.Errorf("SetCapacity(99999) = %d, want %d", got, models.MaxCacheCapacity)
	}
	if got := s.SetCapacity(500); got != 500 {
		t.Errorf("SetCapacity(500) = %d, want 500", got)
	}
}

func TestClearPreservesCapacity(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)
	s.SetCapacity(50)
	s.Upsert("Bonjour", "Hello", "fr", "en", true)

	s.Clear()

	c := s.Load()
	if len(c.Entries) != 0 {
		t.Errorf("Clear left %d entries", len(c.Entries))
	}
	if c.Capacity != 50 {
		t.Errorf("Clear changed capacity to %d", c.Capacity)
	}
	if c.SchemaVersion != models.CacheSchemaVersion {
		t.Errorf("Clear changed schema version to %d", c.SchemaVersion)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	s.Upsert("Bonjour", "Hello", "fr", "en", true)
	s.Upsert("Merci", "Thanks", "fr", "en", false)
	s.Upsert("Bonjour", "Hola", "fr", "es", false)

	stats := s.Stats()
	if stats.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", stats.TotalEntries)
	}
	if stats.LanguageStats["fr-en"] != 2 || stats.LanguageStats["fr-es"] != 1 {
		t.Errorf("LanguageStats = %v", stats.LanguageStats)
	}
	if stats.PriorityCount != 1 {
		t.Errorf("PriorityCount = %d, want 1", stats.PriorityCount)
	}
	if stats.RawSizeBytes == 0 || stats.CompressedBytes == 0 {
		t.Error("Size estimates should be non-zero")
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	blob := newMemBlob()
	blob.failSet = true

	s := newTestStore(blob, testTime)

	// Must not panic or error; the entry stays usable in memory.
	s.Upsert("Bonjour", "Hello", "fr", "en", false)
	if got, ok := s.Lookup("Bonjour", "fr", "en"); !ok || got != "Hello" {
		t.Error("In-memory cache should survive write failures")
	}
	s.Flush()
}

func TestOptimizeReportsSavings(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	long := strings.Repeat("Pouvez-vous indiquer où vous avez mal ? ", 20)
	s.Upsert("q1", long, "fr", "en", false)

	result := s.Optimize()
	if !result.Success {
		t.Fatal("Optimize should succeed with a working blob store")
	}
	if result.SavedBytes <= 0 {
		t.Errorf("Expected positive savings for compressible data, got %d", result.SavedBytes)
	}
	if result.CompressionRatio <= 0 || result.CompressionRatio >= 1 {
		t.Errorf("CompressionRatio = %f, want in (0,1)", result.CompressionRatio)
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s := newTestStore(newMemBlob(), testTime)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Upsert("Bonjour", "Hello", "fr", "en", false)
			s.Lookup("Bonjour", "fr", "en")
		}()
	}
	wg.Wait()
	s.Flush()

	if n := len(s.Entries()); n != 1 {
		t.Errorf("Concurrent upserts of one key produced %d entries", n)
	}
}
