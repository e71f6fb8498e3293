// Package wer computes the word error rate between a reference transcript
// and a hypothesis: Unicode-aware text normalization, whitespace
// tokenization, and word-level edit distance.
package wer
