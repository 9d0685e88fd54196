package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the magnitude of the real FFT of data with its
// mean removed, one bin per frequency from 0 to Nyquist.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}

	fft := fourier.NewFFT(len(data))
	coeffs := fft.Coefficients(nil, centred)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin of data sampled every dt seconds, or 0 for a flat signal.
func DominantFrequency(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	best, bestPow := 0, 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > bestPow {
			best, bestPow = i, ps[i]
		}
	}
	if best == 0 {
		return 0
	}
	return fourier.NewFFT(len(data)).Freq(best) / dt
}
