// Package services hosts the translation pipeline: cache-first lookup,
// predefined emergency phrases, offline similarity fallback, and the remote
// vendor call, composed exactly in that order. Failures never cross the
// public boundary as errors; they come back as bracket-wrapped messages the
// UI layer can detect with a prefix/suffix check.
package services

import (
	"context"
	"sync"

	"github.com/emifrog/speechtotalk/internal/cache"
	"github.com/emifrog/speechtotalk/internal/metrics"
	"github.com/emifrog/speechtotalk/internal/models"
	"github.com/emifrog/speechtotalk/internal/similarity"
	"github.com/emifrog/speechtotalk/internal/translator"
)

// ApproximateSuffix marks similarity-fallback results. The UI shows these
// differently and never speaks them aloud automatically.
const ApproximateSuffix = " (approximatif)"

// Source identifies which pipeline stage produced a result.
type Source string

const (
	SourceIdentity   Source = "identity"
	SourceCache      Source = "cache"
	SourcePhrasebook Source = "phrasebook"
	SourceSimilar    Source = "similar"
	SourceAPI        Source = "api"
	SourceError      Source = "error"
)

// Result is the tagged outcome used inside the service. The bracket-string
// convention only appears at the outermost TranslateText boundary.
type Result struct {
	Text        string
	Source      Source
	Approximate bool
	Err         error
}

// Orchestrator runs the translation pipeline over injected collaborators.
type Orchestrator struct {
	store   *cache.Store
	remote  translator.Translator
	probe   translator.ConnectivityProbe
	phrases *Phrasebook

	mu       sync.Mutex
	inflight map[models.CacheKey]*inflightCall
}

// inflightCall de-duplicates concurrent remote calls for the same key: the
// first caller performs the request, later callers wait on done.
type inflightCall struct {
	done chan struct{}
	text string
	err  error
}

// NewOrchestrator wires the pipeline. All collaborators are required except
// phrases, which defaults to the built-in phrasebook.
func NewOrchestrator(store *cache.Store, remote translator.Translator, probe translator.ConnectivityProbe, phrases *Phrasebook) *Orchestrator {
	if phrases == nil {
		phrases = NewPhrasebook()
	}
	return &Orchestrator{
		store:    store,
		remote:   remote,
		probe:    probe,
		phrases:  phrases,
		inflight: make(map[models.CacheKey]*inflightCall),
	}
}

// TranslateText is the public entry point. It always returns a string: a
// translation, possibly suffixed with the approximate marker, or a
// bracket-wrapped error message. It never returns an error value.
func (o *Orchestrator) TranslateText(ctx context.Context, text, sourceLang, targetLang string, isEmergencyPhrase bool) string {
	r := o.Translate(ctx, text, sourceLang, targetLang, isEmergencyPhrase)
	if r.Err != nil {
		return translator.FormatUserError(r.Err)
	}
	if r.Approximate {
		return r.Text + ApproximateSuffix
	}
	return r.Text
}

// Translate runs the pipeline and returns the tagged result. Stages
// short-circuit in order: empty input, identity pair, exact cache hit,
// phrasebook, then the offline or online path.
func (o *Orchestrator) Translate(ctx context.Context, text, sourceLang, targetLang string, isEmergencyPhrase bool) Result {
	if text == "" {
		return Result{Text: "", Source: SourceIdentity}
	}

	if sourceLang == targetLang {
		metrics.TranslationRequestsTotal.WithLabelValues(string(SourceIdentity)).Inc()
		return Result{Text: text, Source: SourceIdentity}
	}

	if cached, ok := o.store.Lookup(text, sourceLang, targetLang); ok {
		debugLog("cache hit for %q (%s->%s)", truncate(text, 40), sourceLang, targetLang)
		metrics.TranslationRequestsTotal.WithLabelValues(string(SourceCache)).Inc()
		return Result{Text: cached, Source: SourceCache}
	}

	online := o.probe.IsOnline()

	if translated, ok := o.phrases.Lookup(text, targetLang); ok {
		debugLog("phrasebook hit for %q (%s)", truncate(text, 40), targetLang)
		o.store.Upsert(text, translated, sourceLang, targetLang, true)
		metrics.TranslationRequestsTotal.WithLabelValues(string(SourcePhrasebook)).Inc()
		return Result{Text: translated, Source: SourcePhrasebook}
	}

	if !online {
		return o.translateOffline(text, sourceLang, targetLang)
	}
	return o.translateOnline(ctx, text, sourceLang, targetLang, isEmergencyPhrase)
}

// translateOffline tries the similarity fallback. Approximate results are
// never written back to the cache: a near-miss must not shadow the exact
// translation once the network returns.
func (o *Orchestrator) translateOffline(text, sourceLang, targetLang string) Result {
	match := similarity.FindSimilar(text, sourceLang, targetLang, o.store.Entries())
	if match != nil {
		infoLog("offline: approximate match for %q (similarity %.2f)", truncate(text, 40), match.Similarity)
		metrics.TranslationRequestsTotal.WithLabelValues(string(SourceSimilar)).Inc()
		return Result{Text: match.Entry.TranslatedText, Source: SourceSimilar, Approximate: true}
	}

	infoLog("offline: no match for %q (%s->%s)", truncate(text, 40), sourceLang, targetLang)
	metrics.TranslationErrorsTotal.WithLabelValues(string(translator.ClassNetwork)).Inc()
	return Result{
		Source: SourceError,
		Err:    &translator.Error{Class: translator.ClassNetwork, Message: "offline and no cached match"},
	}
}

// translateOnline calls the vendor under the request timeout, de-duplicating
// concurrent calls for the same key. Successful results are written through
// to the cache; failures are classified and never cached.
func (o *Orchestrator) translateOnline(ctx context.Context, text, sourceLang, targetLang string, isEmergencyPhrase bool) Result {
	key := models.CacheKey{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}

	o.mu.Lock()
	if call, ok := o.inflight[key]; ok {
		o.mu.Unlock()
		select {
		case <-call.done:
			if call.err != nil {
				return Result{Source: SourceError, Err: call.err}
			}
			metrics.TranslationRequestsTotal.WithLabelValues(string(SourceAPI)).Inc()
			return Result{Text: call.text, Source: SourceAPI}
		case <-ctx.Done():
			return Result{Source: SourceError, Err: translator.NewError(translator.ClassNetwork, ctx.Err())}
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	o.inflight[key] = call
	o.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, translator.RequestTimeout)
	defer cancel()

	translated, err := o.remote.Translate(callCtx, text, sourceLang, targetLang)

	o.mu.Lock()
	delete(o.inflight, key)
	o.mu.Unlock()

	call.text, call.err = translated, err
	close(call.done)

	if err != nil {
		infoLog("remote translation failed (%s->%s): %v", sourceLang, targetLang, err)
		return Result{Source: SourceError, Err: err}
	}

	o.store.Upsert(text, translated, sourceLang, targetLang, isEmergencyPhrase)
	metrics.TranslationRequestsTotal.WithLabelValues(string(SourceAPI)).Inc()
	return Result{Text: translated, Source: SourceAPI}
}

// GetCacheStats exposes the cache snapshot to the UI layer.
func (o *Orchestrator) GetCacheStats() models.CacheStats {
	return o.store.Stats()
}

// ClearCache empties the cache on explicit user request.
func (o *Orchestrator) ClearCache() bool {
	o.store.Clear()
	return true
}

// SetCacheLimit adjusts the cache capacity. Returns false when the requested
// value had to be clamped.
func (o *Orchestrator) SetCacheLimit(n int) bool {
	return o.store.SetCapacity(n) == n
}

// ForceStorageOptimization runs a compression and eviction pass immediately.
func (o *Orchestrator) ForceStorageOptimization() models.OptimizationResult {
	return o.store.Optimize()
}

// DownloadLanguageForOffline pre-warms the cache with the emergency
// phrasebook and common phrases for a language. Requires connectivity for
// phrases the phrasebook does not already cover; fails closed when offline.
func (o *Orchestrator) DownloadLanguageForOffline(ctx context.Context, code string) bool {
	if code == "" || code == "fr" {
		return false
	}
	if !o.probe.IsOnline() {
		infoLog("offline download refused for %q: no connectivity", code)
		return false
	}

	stored, failed := 0, 0
	prewarm := func(phrase string) {
		if translated, ok := o.phrases.Lookup(phrase, code); ok {
			o.store.Upsert(phrase, translated, "fr", code, true)
			stored++
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, translator.RequestTimeout)
		defer cancel()
		translated, err := o.remote.Translate(callCtx, phrase, "fr", code)
		if err != nil {
			failed++
			debugLog("pre-warm failed for %q (%s): %v", truncate(phrase, 40), code, err)
			return
		}
		o.store.Upsert(phrase, translated, "fr", code, true)
		stored++
	}

	for _, phrase := range o.phrases.SourcePhrases() {
		prewarm(phrase)
	}
	for _, phrase := range commonPhrases {
		prewarm(phrase)
	}

	infoLog("offline download for %q: %d phrases cached, %d failed", code, stored, failed)
	return stored > 0
}

// truncate shortens s to maxLen runes for log lines. Rune count, not bytes,
// so multi-byte scripts truncate cleanly.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
