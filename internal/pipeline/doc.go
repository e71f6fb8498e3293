// Package pipeline wires the feature-extraction and decoding stages into a
// per-utterance flow: normalize, window and transform, apply the mel
// filterbank, call the external model server, decode, and post-process.
// A Pipeline holds only immutable configuration and the cached filterbank,
// so concurrent invocations on independent inputs are safe.
package pipeline
