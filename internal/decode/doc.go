// Package decode turns acoustic model output into readable text.
// It implements greedy CTC decoding over a per-timestep logits matrix,
// vocabulary loading with a sub-word boundary marker, and transcript
// post-processing (whitespace, capitalization, terminal punctuation).
package decode
