// Package mel builds triangular mel filterbanks and log-mel feature tensors.
// The filterbank is a pure function of its configuration and may be cached
// and shared read-only across invocations. Feature tensors are per-band
// normalized over real frames and zero-padded along the time axis to match
// the acoustic model's expected input shape.
package mel
