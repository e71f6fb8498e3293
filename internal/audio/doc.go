// Package audio handles amplitude normalization and PCM format conversion.
// It implements peak-based normalization for inference, optional pre-inference
// amplification with gain clamping and clipping, and 16-bit PCM decoding for
// the HTTP ingestion path.
package audio
