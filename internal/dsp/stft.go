package dsp

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"
)

// ditherAmplitude is the bound of the uniform noise added by Dither.
const ditherAmplitude = 1e-5

// Analyzer computes magnitude spectra over overlapping Hann-windowed frames.
// The window is generated once and reused; an Analyzer is safe for concurrent
// use because every call allocates its own frame buffers.
type Analyzer struct {
	nFft      int
	winLength int
	hopLength int
	window    []float64
}

// NewAnalyzer creates an STFT analyzer. winLength must not exceed nFft.
func NewAnalyzer(nFft, winLength, hopLength int) (*Analyzer, error) {
	if nFft <= 0 || nFft&(nFft-1) != 0 {
		return nil, fmt.Errorf("n_fft must be a positive power of two, got %d", nFft)
	}

	if winLength <= 1 {
		return nil, fmt.Errorf("win_length must be greater than 1, got %d", winLength)
	}

	if winLength > nFft {
		return nil, fmt.Errorf("win_length (%d) must not exceed n_fft (%d)", winLength, nFft)
	}

	if hopLength <= 0 {
		return nil, fmt.Errorf("hop_length must be positive, got %d", hopLength)
	}

	return &Analyzer{
		nFft:      nFft,
		winLength: winLength,
		hopLength: hopLength,
		window:    HannWindow(winLength),
	}, nil
}

// HannWindow generates a Hann window of length n:
// w[i] = 0.5 - 0.5*cos(2*pi*i/(n-1)).
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// NumBins returns the number of magnitude bins per frame (nFft/2).
func (a *Analyzer) NumBins() int {
	return a.nFft / 2
}

// NumFrames returns the number of full analysis frames for n input samples:
// floor((n - winLength)/hop) + 1, or zero when the input is shorter than one
// window. Samples beyond the last full frame are dropped.
func (a *Analyzer) NumFrames(n int) int {
	if n < a.winLength {
		return 0
	}
	return (n-a.winLength)/a.hopLength + 1
}

// Spectrogram computes magnitude spectra for every full frame, in time order.
// Each frame holds nFft/2 non-negative magnitudes. The input is never
// modified.
func (a *Analyzer) Spectrogram(samples []float64) [][]float64 {
	numFrames := a.NumFrames(len(samples))
	if numFrames == 0 {
		return nil
	}

	nBins := a.NumBins()
	frames := make([][]float64, numFrames)
	buf := make([]float64, a.nFft)

	for f := 0; f < numFrames; f++ {
		start := f * a.hopLength

		for i := 0; i < a.winLength; i++ {
			buf[i] = samples[start+i] * a.window[i]
		}
		for i := a.winLength; i < a.nFft; i++ {
			buf[i] = 0
		}

		spectrum := fft.FFTReal(buf)

		mags := make([]float64, nBins)
		for i := 0; i < nBins; i++ {
			re := real(spectrum[i])
			im := imag(spectrum[i])
			mags[i] = math.Sqrt(re*re + im*im)
		}
		frames[f] = mags
	}

	return frames
}

// Dither returns a copy of samples with independent uniform noise in
// [-ditherAmplitude, ditherAmplitude] added to every sample. It avoids
// numerically degenerate all-zero input downstream. The caller supplies the
// entropy source so invocations stay reentrant and seedable under test.
func Dither(samples []float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s + (rng.Float64()*2-1)*ditherAmplitude
	}
	return out
}
