package mel

import (
	"fmt"
	"math"
)

// Filterbank is a fixed matrix of triangular mel filters. Each row is a
// weighting function over FFT magnitude bins, zero outside its support and
// peaking at 1.0 at its center bin. Filters are deliberately not
// area-normalized (no Slaney normalization); the pretrained model expects
// the unnormalized triangular variant.
type Filterbank struct {
	// Weights is [nMels][nFreqBins].
	Weights [][]float64

	NMels    int
	FreqBins int
}

// NewFilterbank constructs the filterbank for a given analysis configuration.
// nFreqBins is the number of STFT magnitude bins (nFft/2).
func NewFilterbank(sampleRate, nFft, nMels int, fMin, fMax float64) (*Filterbank, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if nMels <= 0 {
		return nil, fmt.Errorf("n_mels must be positive, got %d", nMels)
	}

	if fMin < 0 || fMax <= fMin {
		return nil, fmt.Errorf("invalid mel frequency range [%f, %f]", fMin, fMax)
	}

	nFreqBins := nFft / 2

	// nMels+2 equally spaced points on the mel scale
	melMin := HzToMel(fMin)
	melMax := HzToMel(fMax)
	step := (melMax - melMin) / float64(nMels+1)

	binIndices := make([]int, nMels+2)
	for i := range binIndices {
		hz := MelToHz(melMin + float64(i)*step)
		binIndices[i] = int(math.Floor(float64(nFft+1) * hz / float64(sampleRate)))
	}

	weights := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		weights[m] = make([]float64, nFreqBins)
		left := binIndices[m]
		center := binIndices[m+1]
		right := binIndices[m+2]

		// Zero-width filters (center == left or right == center) stay all-zero
		if center == left || right == center {
			continue
		}

		for f := left; f < center && f < nFreqBins; f++ {
			weights[m][f] = float64(f-left) / float64(center-left)
		}
		for f := center; f < right && f < nFreqBins; f++ {
			weights[m][f] = float64(right-f) / float64(right-center)
		}
	}

	return &Filterbank{
		Weights:  weights,
		NMels:    nMels,
		FreqBins: nFreqBins,
	}, nil
}

// HzToMel converts a frequency in Hz to the mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts a mel-scale value back to Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}
