package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/emifrog/speechtotalk/internal/cache"
	"github.com/emifrog/speechtotalk/internal/models"
)

const defaultOptimizeInterval = 24 * time.Hour

// OptimizeWorker periodically recompresses and re-evicts the translation
// cache so storage stays bounded even when no translations are flowing.
type OptimizeWorker struct {
	store    *cache.Store
	interval time.Duration

	mu         sync.RWMutex
	lastRun    time.Time
	lastResult models.OptimizationResult
}

// OptimizeStatus reports the worker's last pass, for the admin endpoint.
type OptimizeStatus struct {
	LastRunTime      time.Time `json:"last_run_time"`
	NextRunTime      time.Time `json:"next_run_time"`
	LastSuccess      bool      `json:"last_success"`
	LastSavedBytes   int       `json:"last_saved_bytes"`
	CompressionRatio float64   `json:"compression_ratio"`
}

// NewOptimizeWorker builds the worker. A non-positive interval falls back to
// the 24h default.
func NewOptimizeWorker(store *cache.Store, interval time.Duration) *OptimizeWorker {
	if interval <= 0 {
		interval = defaultOptimizeInterval
	}
	return &OptimizeWorker{store: store, interval: interval}
}

// Start runs the worker until ctx is cancelled. An optimization pass runs
// immediately on startup, then on every tick.
func (w *OptimizeWorker) Start(ctx context.Context) {
	log.Printf("Optimize worker started: storage pass every %s", w.interval)

	w.runOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Optimize worker stopping...")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *OptimizeWorker) runOnce() {
	result := w.store.Optimize()

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastResult = result
	w.mu.Unlock()

	if result.Success {
		log.Printf("Optimize worker: pass complete, saved %d bytes (ratio %.2f)", result.SavedBytes, result.CompressionRatio)
	} else {
		log.Println("Optimize worker: pass failed, will retry next tick")
	}
}

// Status returns the last pass outcome and the next scheduled run.
func (w *OptimizeWorker) Status() OptimizeStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return OptimizeStatus{
		LastRunTime:      w.lastRun,
		NextRunTime:      w.lastRun.Add(w.interval),
		LastSuccess:      w.lastResult.Success,
		LastSavedBytes:   w.lastResult.SavedBytes,
		CompressionRatio: w.lastResult.CompressionRatio,
	}
}
