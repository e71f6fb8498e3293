package audio

import (
	"encoding/binary"
	"fmt"
)

// DecodePCM16 converts little-endian 16-bit PCM bytes to float64 samples
// in [-1, 1). Container parsing (WAV/FLAC headers) is the caller's concern;
// this operates on raw sample data only.
func DecodePCM16(data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even, got %d bytes", len(data))
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(v) / 32768.0
	}

	return samples, nil
}

// EncodePCM16 converts float64 samples to little-endian 16-bit PCM bytes.
// Samples outside [-1, 1] are clipped.
func EncodePCM16(samples []float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767.0)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}
