package mel

import (
	"errors"
	"math"
)

const (
	// logGuard keeps ln() away from zero energy.
	logGuard = 1e-10

	// varianceGuard keeps the per-band standard deviation away from zero.
	varianceGuard = 1e-10

	// DefaultPadTo is the time-axis padding multiple expected by the model.
	DefaultPadTo = 16
)

// ErrNoFrames indicates that the spectrogram holds no analysis frames, so no
// feature tensor can be built.
var ErrNoFrames = errors.New("spectrogram contains no frames")

// FeatureTensor is the normalized log-mel feature matrix handed to inference.
// Data is stored mel-major, time-minor: Data[m*PaddedFrames + t]. Columns at
// t >= NFrames are exactly zero; normalization statistics are computed over
// real frames only. The logical model input shape is [1, NMels, PaddedFrames].
type FeatureTensor struct {
	Data         []float64 `json:"data"`
	NMels        int       `json:"n_mels"`
	NFrames      int       `json:"n_frames"`
	PaddedFrames int       `json:"padded_frames"`
}

// At returns the value at mel band m and time step t.
func (ft *FeatureTensor) At(m, t int) float64 {
	return ft.Data[m*ft.PaddedFrames+t]
}

// Apply computes the raw log-mel matrix for a magnitude spectrogram:
// logMel[t][m] = ln(sum_f weights[m][f]*mags[t][f] + logGuard).
func (fb *Filterbank) Apply(frames [][]float64) [][]float64 {
	logMel := make([][]float64, len(frames))
	for t, mags := range frames {
		row := make([]float64, fb.NMels)
		for m, weights := range fb.Weights {
			sum := 0.0
			n := len(mags)
			if n > len(weights) {
				n = len(weights)
			}
			for f := 0; f < n; f++ {
				if w := weights[f]; w != 0 {
					sum += w * mags[f]
				}
			}
			row[m] = math.Log(sum + logGuard)
		}
		logMel[t] = row
	}
	return logMel
}

// BuildTensor normalizes a raw log-mel matrix per mel band (zero mean, unit
// variance over the real frames, biased variance estimate) and zero-pads the
// time axis up to the next multiple of padTo.
func BuildTensor(logMel [][]float64, nMels, padTo int) (*FeatureTensor, error) {
	nFrames := len(logMel)
	if nFrames == 0 {
		return nil, ErrNoFrames
	}

	if padTo <= 0 {
		padTo = DefaultPadTo
	}

	paddedFrames := ((nFrames + padTo - 1) / padTo) * padTo

	ft := &FeatureTensor{
		Data:         make([]float64, nMels*paddedFrames),
		NMels:        nMels,
		NFrames:      nFrames,
		PaddedFrames: paddedFrames,
	}

	for m := 0; m < nMels; m++ {
		mean := 0.0
		for t := 0; t < nFrames; t++ {
			mean += logMel[t][m]
		}
		mean /= float64(nFrames)

		variance := 0.0
		for t := 0; t < nFrames; t++ {
			d := logMel[t][m] - mean
			variance += d * d
		}
		variance /= float64(nFrames)

		std := math.Sqrt(variance + varianceGuard)

		base := m * paddedFrames
		for t := 0; t < nFrames; t++ {
			ft.Data[base+t] = (logMel[t][m] - mean) / std
		}
		// Data[base+nFrames : base+paddedFrames] stays exactly zero
	}

	return ft, nil
}
