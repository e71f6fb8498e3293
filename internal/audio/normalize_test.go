package audio

import (
	"math"
	"testing"
)

func TestNormalizePeakScalesToTarget(t *testing.T) {
	samples := []float64{0.1, -0.5, 0.25}

	out, stats := NormalizePeak(samples, DefaultTargetPeak)

	if stats.Peak != 0.5 {
		t.Errorf("Expected peak 0.5, got %f", stats.Peak)
	}

	peak := 0.0
	for _, s := range out {
		if math.Abs(s) > peak {
			peak = math.Abs(s)
		}
	}
	if math.Abs(peak-DefaultTargetPeak) > 1e-12 {
		t.Errorf("Expected output peak %f, got %f", DefaultTargetPeak, peak)
	}

	// Relative amplitudes must be preserved
	if math.Abs(out[0]/out[1]-samples[0]/samples[1]) > 1e-12 {
		t.Errorf("Normalization changed sample ratios: %v", out)
	}
}

func TestNormalizePeakSilenceUnchanged(t *testing.T) {
	samples := make([]float64, 1000)

	out, stats := NormalizePeak(samples, DefaultTargetPeak)

	for i, s := range out {
		if s != 0 {
			t.Fatalf("Expected silence to stay zero, got %f at index %d", s, i)
		}
	}

	if stats.Peak != 0 {
		t.Errorf("Expected zero peak for silence, got %f", stats.Peak)
	}

	if stats.ActiveFraction != 0 {
		t.Errorf("Expected zero active fraction for silence, got %f", stats.ActiveFraction)
	}
}

func TestNormalizePeakDoesNotMutateInput(t *testing.T) {
	samples := []float64{0.1, -0.2, 0.3}
	orig := append([]float64(nil), samples...)

	NormalizePeak(samples, DefaultTargetPeak)

	for i := range samples {
		if samples[i] != orig[i] {
			t.Fatalf("Input buffer modified at index %d: %f != %f", i, samples[i], orig[i])
		}
	}
}

func TestAmplifyGainClamp(t *testing.T) {
	// Peak 0.01 would need gain 30 to reach 0.3; must be clamped to 10.
	samples := []float64{0.01, -0.01}

	out, _ := Amplify(samples, DefaultTargetAmp)

	if math.Abs(out[0]-0.1) > 1e-12 {
		t.Errorf("Expected clamped gain of 10 (0.01 -> 0.1), got %f", out[0])
	}
}

func TestAmplifyClipsToUnitRange(t *testing.T) {
	// Target above 1.0 forces the scaled peak past full scale.
	samples := []float64{0.5, -0.5, 0.1}

	out, _ := Amplify(samples, 1.5)

	if out[0] != 1.0 || out[1] != -1.0 {
		t.Errorf("Expected peak samples clipped to +/-1, got %f, %f", out[0], out[1])
	}

	if math.Abs(out[2]-0.3) > 1e-12 {
		t.Errorf("Expected unclipped sample 0.3, got %f", out[2])
	}
}

func TestAmplifySkipsQuietSignal(t *testing.T) {
	samples := []float64{0.0005, -0.0004}

	out, _ := Amplify(samples, DefaultTargetAmp)

	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("Expected quiet signal unchanged at index %d: %f != %f", i, out[i], samples[i])
		}
	}
}

func TestAnalyzeActiveFraction(t *testing.T) {
	samples := []float64{0.5, 0.5, 0.0, 0.0}

	stats := Analyze(samples)

	if stats.ActiveFraction != 0.5 {
		t.Errorf("Expected active fraction 0.5, got %f", stats.ActiveFraction)
	}

	if stats.Samples != 4 {
		t.Errorf("Expected 4 samples, got %d", stats.Samples)
	}
}

func TestDecodePCM16(t *testing.T) {
	// 0x0000 = 0, 0x4000 = 16384 -> 0.5, 0x8000 = -32768 -> -1.0
	data := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80}

	samples, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	expected := []float64{0, 0.5, -1.0}
	for i, want := range expected {
		if math.Abs(samples[i]-want) > 1e-12 {
			t.Errorf("Sample %d: expected %f, got %f", i, want, samples[i])
		}
	}
}

func TestDecodePCM16OddLength(t *testing.T) {
	if _, err := DecodePCM16([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestDecodePCM16Empty(t *testing.T) {
	if _, err := DecodePCM16(nil); err == nil {
		t.Error("Expected error for empty PCM data")
	}
}

func TestEncodePCM16RoundTrip(t *testing.T) {
	samples := []float64{0, 0.25, -0.25, 0.99}

	decoded, err := DecodePCM16(EncodePCM16(samples))
	if err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}

	for i := range samples {
		if math.Abs(decoded[i]-samples[i]) > 1.0/32768.0 {
			t.Errorf("Sample %d: expected ~%f, got %f", i, samples[i], decoded[i])
		}
	}
}
