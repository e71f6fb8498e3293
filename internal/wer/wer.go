package wer

import (
	"strings"
	"unicode"
)

// Score computes the word error rate between reference and hypothesis:
// word-level edit distance divided by the reference word count. An empty
// reference scores 0.0 against an empty hypothesis and 1.0 otherwise. The
// result is deliberately not capped at 1.0; a hypothesis much longer than
// the reference can exceed it.
func Score(reference, hypothesis string) float64 {
	refWords := tokenize(reference)
	hypWords := tokenize(hypothesis)

	if len(refWords) == 0 {
		if len(hypWords) == 0 {
			return 0.0
		}
		return 1.0
	}

	return float64(editDistance(refWords, hypWords)) / float64(len(refWords))
}

// tokenize lowercases the text, strips everything that is not a letter,
// digit, or whitespace, and splits on whitespace runs.
func tokenize(text string) []string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Fields(sb.String())
}

// editDistance computes the Levenshtein distance over word sequences with
// unit costs, using a single rolling row of the DP table.
func editDistance(ref, hyp []string) int {
	prev := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ref); i++ {
		cur := make([]int, len(hyp)+1)
		cur[0] = i
		for j := 1; j <= len(hyp); j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}

			m := prev[j] + 1 // deletion
			if ins := cur[j-1] + 1; ins < m {
				m = ins
			}
			if sub := prev[j-1] + cost; sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev = cur
	}

	return prev[len(hyp)]
}
