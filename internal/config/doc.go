// Package config provides configuration loading and validation for the ASR
// pipeline service. It handles YAML-based configuration with per-section
// validation covering the audio front end, feature extraction geometry,
// decoding, inference, and the HTTP API.
package config
