package audio

import (
	"errors"
	"math"
)

const (
	// DefaultTargetPeak is the peak amplitude targeted by inference normalization.
	DefaultTargetPeak = 0.95

	// DefaultTargetAmp is the amplitude targeted by pre-inference amplification.
	DefaultTargetAmp = 0.3

	// maxAmplifyGain bounds the amplification gain to limit distortion.
	maxAmplifyGain = 10.0

	// minAmplifyPeak is the peak below which amplification is skipped entirely.
	minAmplifyPeak = 0.001

	// activityThreshold is the absolute amplitude above which a sample counts
	// as signal activity in diagnostic statistics.
	activityThreshold = 0.01
)

// ErrEmptyAudio indicates an empty or missing audio buffer.
var ErrEmptyAudio = errors.New("audio buffer is empty")

// SignalStats contains diagnostic signal statistics for observability
type SignalStats struct {
	Samples        int     `json:"samples"`
	Peak           float64 `json:"peak"`
	ActiveFraction float64 `json:"active_fraction"`
}

// Analyze computes diagnostic statistics over a sample buffer.
// It never modifies the input.
func Analyze(samples []float64) SignalStats {
	stats := SignalStats{Samples: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	active := 0
	for _, s := range samples {
		abs := math.Abs(s)
		if abs > stats.Peak {
			stats.Peak = abs
		}
		if abs > activityThreshold {
			active++
		}
	}
	stats.ActiveFraction = float64(active) / float64(len(samples))

	return stats
}

// NormalizePeak rescales samples so the peak absolute value equals targetPeak.
// Total silence (peak == 0) is returned unchanged. The returned slice is
// always a fresh copy; the caller's buffer is never modified.
func NormalizePeak(samples []float64, targetPeak float64) ([]float64, SignalStats) {
	stats := Analyze(samples)

	out := make([]float64, len(samples))
	if stats.Peak == 0 {
		copy(out, samples)
		return out, stats
	}

	gain := targetPeak / stats.Peak
	for i, s := range samples {
		out[i] = s * gain
	}

	return out, stats
}

// Amplify boosts quiet signals toward targetAmp before inference. The gain is
// clamped to maxAmplifyGain and every output sample is clipped to [-1, 1].
// Signals with peak below minAmplifyPeak are too quiet to amplify meaningfully
// and are returned unchanged (as a copy).
func Amplify(samples []float64, targetAmp float64) ([]float64, SignalStats) {
	stats := Analyze(samples)

	out := make([]float64, len(samples))
	if stats.Peak < minAmplifyPeak {
		copy(out, samples)
		return out, stats
	}

	gain := targetAmp / stats.Peak
	if gain > maxAmplifyGain {
		gain = maxAmplifyGain
	}

	for i, s := range samples {
		v := s * gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		out[i] = v
	}

	return out, stats
}
