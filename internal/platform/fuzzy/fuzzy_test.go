package fuzzy

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIndelRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "fever", "fever", 100},
		{"both empty", "", "", 100},
		{"one empty", "fever", "", 0},
		{"disjoint", "fever", "cough", 0},
		{"kitten sitting", "kitten", "sitting", 800.0 / 13},
		{"shared letters", "headache", "fever", 400.0 / 13},
		{"prefix", "cough", "coughing", 1000.0 / 13},
		{"unicode", "café", "cafe", 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IndelRatio(tt.a, tt.b)
			if !approx(got, tt.want) {
				t.Errorf("IndelRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if rev := IndelRatio(tt.b, tt.a); !approx(got, rev) {
				t.Errorf("IndelRatio not symmetric: %v vs %v", got, rev)
			}
			if got < 0 || got > 100 {
				t.Errorf("IndelRatio out of range: %v", got)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"cat", "bat", 1},
		{"cat", "cart", 1},
		{"kitten", "sitting", 3},
		{"ab", "ba", 2},
		{"naïve", "naive", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshteinRatio(t *testing.T) {
	if got := LevenshteinRatio("kitten", "sitting"); !approx(got, 100*(1-3.0/7)) {
		t.Errorf("unexpected ratio %v", got)
	}
	if got := LevenshteinRatio("", ""); got != 100 {
		t.Errorf("expected 100 for empty strings, got %v", got)
	}
	if got := LevenshteinRatio("abc", "xyz"); got != 0 {
		t.Errorf("expected 0 for disjoint strings, got %v", got)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", ScorerIndel, ScorerLevenshtein} {
		s, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) unexpected error: %v", name, err)
		}
		if s("fever", "fever") != 100 {
			t.Errorf("scorer %q did not score identical strings as 100", name)
		}
	}
	if _, err := ByName("soundex"); err == nil {
		t.Error("expected error for unknown scorer")
	}
}
