package wer

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		reference  string
		hypothesis string
		expected   float64
	}{
		{"identical", "the cat sat", "the cat sat", 0.0},
		{"both empty", "", "", 0.0},
		{"empty reference", "", "hello", 1.0},
		{"empty hypothesis", "the cat sat", "", 1.0},
		{"one substitution", "a b c", "a x c", 1.0 / 3.0},
		{"one insertion", "a b", "a x b", 0.5},
		{"one deletion", "a b c", "a c", 1.0 / 3.0},
		{"case insensitive", "The Cat", "the cat", 0.0},
		{"punctuation stripped", "hello, world!", "hello world", 0.0},
		{"uncapped above one", "hi", "a b c", 3.0},
		{"unicode letters kept", "привіт світ", "привіт світ", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.reference, tt.hypothesis)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Score(%q, %q) = %f, expected %f", tt.reference, tt.hypothesis, got, tt.expected)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	words := tokenize("  Hello,   WORLD!  42 ")

	expected := []string{"hello", "world", "42"}
	if len(words) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, words)
	}
	for i := range expected {
		if words[i] != expected[i] {
			t.Errorf("Token %d: expected %q, got %q", i, expected[i], words[i])
		}
	}
}

func TestEditDistanceSymmetricCosts(t *testing.T) {
	ref := []string{"a", "b", "c"}
	hyp := []string{"c", "b", "a"}

	if d := editDistance(ref, hyp); d != 2 {
		t.Errorf("Expected distance 2, got %d", d)
	}
}
