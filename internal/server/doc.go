// Package server provides the HTTP API for the ASR pipeline service:
// transcription, feature extraction, logits decoding, WER scoring, and the
// usual health, stats, config, and Prometheus metrics endpoints.
package server
