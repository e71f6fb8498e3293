// Package dsp implements short-time Fourier analysis of mono audio.
// It provides Hann windowing, overlapping frame extraction, and per-frame
// magnitude spectra computed with a real-valued FFT.
package dsp
