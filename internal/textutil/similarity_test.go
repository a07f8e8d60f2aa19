package textutil

import "testing"

func TestCosineSimilarityIdentical(t *testing.T) {
	a := NewFingerprint("the shawshank redemption")
	b := NewFingerprint("The Shawshank Redemption")
	if sim := CosineSimilarity(a, b); sim < 0.999 {
		t.Fatalf("expected ~1.0, got %f", sim)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	a := NewFingerprint("inception")
	b := NewFingerprint("casablanca")
	if sim := CosineSimilarity(a, b); sim != 0 {
		t.Fatalf("expected 0, got %f", sim)
	}
}

func TestCosineSimilarityNil(t *testing.T) {
	if sim := CosineSimilarity(nil, NewFingerprint("x y z words")); sim != 0 {
		t.Fatalf("expected 0 for nil fingerprint, got %f", sim)
	}
}

func TestTokenizeFiltersShortTokens(t *testing.T) {
	tokens := Tokenize("It is a Dog Day Afternoon")
	for _, tok := range tokens {
		if len(tok) < 3 {
			t.Fatalf("short token survived: %q", tok)
		}
	}
	if len(tokens) != 3 {
		t.Fatalf("Tokenize = %v", tokens)
	}
}
