// Package similarity implements the approximate-match fallback used when the
// device is offline and the cache has no exact hit: normalized Levenshtein
// distance over cached entries sharing the same language pair.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/emifrog/speechtotalk/internal/models"
)

// Threshold is the minimum similarity for an approximate match. A candidate
// at exactly the threshold is rejected; the match must be strictly closer.
const Threshold = 0.70

// Match is an approximate cache hit.
type Match struct {
	Entry      models.CacheEntry
	Similarity float64
}

// FindSimilar scans entries for the closest source text in the same language
// pair. Returns nil when nothing clears the threshold. Ties keep the first
// candidate in entry order.
func FindSimilar(text, sourceLang, targetLang string, entries []models.CacheEntry) *Match {
	var best *Match
	for i := range entries {
		e := &entries[i]
		if e.SourceLang != sourceLang || e.TargetLang != targetLang {
			continue
		}
		score := Similarity(text, e.SourceText)
		if score <= Threshold {
			continue
		}
		if best == nil || score > best.Similarity {
			best = &Match{Entry: *e, Similarity: score}
		}
	}
	return best
}

// Similarity returns 1 - levenshtein(lower(a), lower(b)) / max(len(a), len(b)).
// Two empty strings are identical by definition.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance over runes with a two-row matrix.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
