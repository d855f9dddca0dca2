package similarity

import (
	"testing"

	"github.com/emifrog/speechtotalk/internal/models"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "Identical strings",
			a:    "bonjour",
			b:    "bonjour",
			want: 1,
		},
		{
			name: "Case insensitive",
			a:    "Bonjour",
			b:    "BONJOUR",
			want: 1,
		},
		{
			name: "Both empty",
			a:    "",
			b:    "",
			want: 1,
		},
		{
			name: "One empty",
			a:    "abc",
			b:    "",
			want: 0,
		},
		{
			name: "Single deletion",
			a:    "bonjour",
			b:    "bonjou",
			want: 1 - 1.0/7.0,
		},
		{
			name: "Completely different",
			a:    "aaaa",
			b:    "zzzz",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func entries() []models.CacheEntry {
	return []models.CacheEntry{
		{SourceText: "Bonjour", TranslatedText: "Hello", SourceLang: "fr", TargetLang: "en"},
		{SourceText: "Bonsoir", TranslatedText: "Good evening", SourceLang: "fr", TargetLang: "en"},
		{SourceText: "Bonjour", TranslatedText: "Hola", SourceLang: "fr", TargetLang: "es"},
	}
}

func TestFindSimilarNearMiss(t *testing.T) {
	m := FindSimilar("Bonjou", "fr", "en", entries())
	if m == nil {
		t.Fatal("Expected a match for near-miss input")
	}
	if m.Entry.TranslatedText != "Hello" {
		t.Errorf("Expected 'Hello', got %q", m.Entry.TranslatedText)
	}
	if m.Similarity <= Threshold {
		t.Errorf("Returned match with similarity %f <= threshold", m.Similarity)
	}
}

func TestFindSimilarExactBeatsWeaker(t *testing.T) {
	m := FindSimilar("Bonsoir", "fr", "en", entries())
	if m == nil {
		t.Fatal("Expected a match")
	}
	if m.Entry.TranslatedText != "Good evening" {
		t.Errorf("Exact-text candidate should win, got %q", m.Entry.TranslatedText)
	}
	if m.Similarity != 1 {
		t.Errorf("Expected similarity 1 for exact text, got %f", m.Similarity)
	}
}

func TestFindSimilarRespectsLanguagePair(t *testing.T) {
	// "Bonjour" exists for fr->es but the query is fr->de.
	if m := FindSimilar("Bonjour", "fr", "de", entries()); m != nil {
		t.Errorf("Expected no match for unseen language pair, got %+v", m)
	}
}

func TestFindSimilarBelowThreshold(t *testing.T) {
	if m := FindSimilar("Merci beaucoup", "fr", "en", entries()); m != nil {
		t.Errorf("Expected no match for dissimilar text, got %+v", m)
	}
}

func TestFindSimilarEmptyCandidates(t *testing.T) {
	if m := FindSimilar("Bonjour", "fr", "en", nil); m != nil {
		t.Errorf("Expected no match with empty candidate set, got %+v", m)
	}
}
