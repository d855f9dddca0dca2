package cache

import (
	"sort"
	"time"

	"github.com/emifrog/speechtotalk/internal/models"
)

const (
	// PriorityRetention keeps emergency phrases across long gaps between
	// incidents; ordinary entries expire much sooner.
	PriorityRetention = 30 * 24 * time.Hour
	DefaultRetention  = 7 * 24 * time.Hour
)

// Evict runs the two-phase cleanup: retention expiry, then a utility-ranked
// trim down to capacity. Deterministic for a given entry set and clock, and
// idempotent when re-run without intervening mutations.
func Evict(entries []models.CacheEntry, capacity int, now time.Time) []models.CacheEntry {
	// Phase 1: drop entries idle past their retention window.
	survivors := make([]models.CacheEntry, 0, len(entries))
	for _, e := range entries {
		retention := DefaultRetention
		if e.IsPriority {
			retention = PriorityRetention
		}
		if now.Sub(e.LastUsedAt) > retention {
			continue
		}
		survivors = append(survivors, e)
	}

	if capacity <= 0 || len(survivors) <= capacity {
		return survivors
	}

	// Phase 2: rank by utility and keep the top slice.
	// Priority tier first, then use count, then recency.
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.IsPriority != b.IsPriority {
			return a.IsPriority
		}
		if a.UseCount != b.UseCount {
			return a.UseCount > b.UseCount
		}
		return a.LastUsedAt.After(b.LastUsedAt)
	})

	return survivors[:capacity]
}
