// Package inference is the HTTP client for the external acoustic model
// server. It posts a feature tensor and receives the per-timestep logits
// matrix, enforcing a caller-configured timeout and a concurrency limit.
// The core never runs the network itself.
package inference
